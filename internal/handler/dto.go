package handler

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/discount"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Requests.

type pageRequest struct {
	Page int
}

func (r *pageRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "page":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "page")
			}
			r.Page = v
			return nil
		default:
			return d.Skip()
		}
	})
}

type searchRequest struct {
	Query string `validate:"max=200"`
}

func (r *searchRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "query":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "query")
			}
			r.Query = v
			return nil
		default:
			return d.Skip()
		}
	})
}

type addItemRequest struct {
	ProductID string `validate:"required"`
}

func (r *addItemRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			// Product ids from the source may be numeric.
			if d.Next() == jx.Number {
				n, err := d.Num()
				if err != nil {
					return errors.Wrap(err, "productId")
				}
				r.ProductID = n.String()
				return nil
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "productId")
			}
			r.ProductID = v
			return nil
		default:
			return d.Skip()
		}
	})
}

// quantityRequest is not range-checked here: the cart reports non-positive
// quantities itself.
type quantityRequest struct {
	Quantity int
	set      bool
}

func (r *quantityRequest) Decode(d *jx.Decoder) error {
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			r.Quantity = v
			r.set = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return err
	}
	if !r.set {
		return errors.New("quantity is required")
	}
	return nil
}

type discountRequest struct {
	Discount decimal.Decimal `validate:"gte=0"`
	Kind     string          `validate:"omitempty,oneof=fixed percentage"`
}

func (r *discountRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "discount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "discount")
			}
			r.Discount = v
			return nil
		case "kind":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "kind")
			}
			r.Kind = strings.ToLower(strings.TrimSpace(v))
			return nil
		default:
			return d.Skip()
		}
	})
}

func (r discountRequest) input() discount.Input {
	return discount.Input{Amount: r.Discount, Kind: discount.Kind(r.Kind)}
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.Trim(n.String(), `"`))
}

// Responses.

type encoder interface {
	Encode(e *jx.Encoder)
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Float64(v.Round(2).InexactFloat64())
}

type productResponse product.Product

func (p productResponse) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		if p.Category != "" {
			e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		}
	})
}

func encodeProducts(e *jx.Encoder, items []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range items {
			productResponse(p).Encode(e)
		}
	})
}

type catalogResponse catalog.State

func (s catalogResponse) Encode(e *jx.Encoder) {
	st := catalog.State(s)
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) { encodeProducts(e, st.Items) })
		e.Field("visible", func(e *jx.Encoder) { encodeProducts(e, st.Visible()) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(st.Status)) })
		e.Field("error", func(e *jx.Encoder) {
			if st.Error == "" {
				e.Null()
				return
			}
			e.Str(st.Error)
		})
		e.Field("currentPage", func(e *jx.Encoder) { e.Int(st.CurrentPage) })
		e.Field("totalPages", func(e *jx.Encoder) { e.Int(st.TotalPages) })
		e.Field("searchQuery", func(e *jx.Encoder) { e.Str(st.SearchQuery) })
	})
}

func encodeEntries(e *jx.Encoder, entries []cart.Entry) {
	e.Arr(func(e *jx.Encoder) {
		for _, en := range entries {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product", func(e *jx.Encoder) { productResponse(en.Product).Encode(e) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(en.Quantity) })
				e.Field("lineTotal", func(e *jx.Encoder) {
					encodeMoney(e, en.Product.Price.Mul(decimal.NewFromInt(int64(en.Quantity))))
				})
			})
		}
	})
}

func encodeTotals(e *jx.Encoder, t discount.Totals) {
	t = t.Rounded()
	e.Field("count", func(e *jx.Encoder) { e.Int(t.Count) })
	e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, t.Subtotal) })
	e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, t.Discount) })
	e.Field("total", func(e *jx.Encoder) { encodeMoney(e, t.Total) })
}

type cartResponse struct {
	Entries []cart.Entry
	Totals  discount.Totals
}

func (c cartResponse) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("entries", func(e *jx.Encoder) { encodeEntries(e, c.Entries) })
		encodeTotals(e, c.Totals)
	})
}

type receiptResponse checkout.Receipt

func (r receiptResponse) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(r.OrderID) })
		e.Field("entries", func(e *jx.Encoder) { encodeEntries(e, r.Entries) })
		encodeTotals(e, r.Totals)
		e.Field("discountAmount", func(e *jx.Encoder) { encodeMoney(e, r.Discount.Amount) })
		e.Field("discountKind", func(e *jx.Encoder) { e.Str(string(r.Discount.Kind)) })
		e.Field("placedAt", func(e *jx.Encoder) { e.Str(r.PlacedAt.UTC().Format(time.RFC3339)) })
		e.Field("redirect", func(e *jx.Encoder) { e.Str(r.Redirect) })
	})
}

type errorResponse struct {
	Code    int
	Message string
}

func (r errorResponse) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(r.Code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(r.Message) })
	})
}
