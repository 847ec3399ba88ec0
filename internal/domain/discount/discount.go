// Package discount derives cart totals. Nothing here is stored: totals are
// recomputed from the cart and the user's discount input on every read.
package discount

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindFixed subtracts a monetary amount, flooring the total at zero.
	KindFixed Kind = "fixed"
	// KindPercentage subtracts a percentage of the subtotal. The result is
	// not floored, so amounts above 100 produce a negative total.
	KindPercentage Kind = "percentage"
)

// ErrUnsupportedKind is returned for a discount kind other than fixed or
// percentage.
var ErrUnsupportedKind = errors.New("unsupported discount kind")

var hundred = decimal.NewFromInt(100)

// ParseKind converts user input into a Kind. An empty string selects fixed.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindFixed, nil
	case KindFixed, KindPercentage:
		return k, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedKind, "%q", s)
	}
}

// Input is the discount the user entered on the cart page.
type Input struct {
	Amount decimal.Decimal
	Kind   Kind
}

// Totals are the derived cart amounts at full precision.
type Totals struct {
	Count    int
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Rounded returns the totals rounded to 2 decimal places for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Count:    t.Count,
		Subtotal: t.Subtotal.Round(2),
		Discount: t.Discount.Round(2),
		Total:    t.Total.Round(2),
	}
}

// Subtotal returns the sum of price * quantity across entries.
func Subtotal(entries []cart.Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return sum
}

// Apply returns the total after applying amount of the given kind to
// subtotal.
func Apply(subtotal, amount decimal.Decimal, kind Kind) (decimal.Decimal, error) {
	switch kind {
	case KindFixed:
		return decimal.Max(decimal.Zero, subtotal.Sub(amount)), nil
	case KindPercentage:
		return subtotal.Mul(decimal.NewFromInt(1).Sub(amount.Div(hundred))), nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnsupportedKind, "%q", kind)
	}
}

// Compute derives the totals for entries with the discount in applied.
func Compute(entries []cart.Entry, in Input) (Totals, error) {
	subtotal := Subtotal(entries)
	total, err := Apply(subtotal, in.Amount, in.Kind)
	if err != nil {
		return Totals{}, err
	}

	count := 0
	for _, e := range entries {
		count += e.Quantity
	}
	return Totals{
		Count:    count,
		Subtotal: subtotal,
		Discount: subtotal.Sub(total),
		Total:    total,
	}, nil
}
