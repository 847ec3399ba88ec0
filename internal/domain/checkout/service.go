package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/discount"
)

// ErrEmptyCart is returned when checking out a cart with no entries.
var ErrEmptyCart = errors.New("cart is empty")

// Cart is the part of cart.Store that checkout needs.
type Cart interface {
	State() cart.State
	Drain() cart.State
}

var _ Cart = (*cart.Store)(nil)

// Service confirms orders. It holds no state of its own.
type Service struct {
	now   func() time.Time
	newID func() string
}

// NewService creates a checkout Service.
func NewService() *Service {
	return &Service{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Checkout empties c and returns a receipt priced with the given discount.
// The discount is validated before the cart is touched, so a bad kind leaves
// the cart as it was.
func (s *Service) Checkout(ctx context.Context, c Cart, in discount.Input) (*Receipt, error) {
	kind, err := discount.ParseKind(string(in.Kind))
	if err != nil {
		return nil, err
	}
	in.Kind = kind

	if c.State().Len() == 0 {
		return nil, ErrEmptyCart
	}

	st := c.Drain()
	if st.Len() == 0 {
		// Emptied concurrently.
		return nil, ErrEmptyCart
	}

	entries := st.Entries()
	totals, err := discount.Compute(entries, in)
	if err != nil {
		return nil, errors.Wrap(err, "compute totals")
	}

	r := &Receipt{
		OrderID:  s.newID(),
		Entries:  entries,
		Discount: in,
		Totals:   totals,
		PlacedAt: s.now(),
		Redirect: HomePath,
	}

	zctx.From(ctx).Info("Checkout confirmed",
		zap.String("order_id", r.OrderID),
		zap.Int("items", totals.Count),
		zap.String("subtotal", totals.Subtotal.StringFixed(2)),
		zap.String("total", totals.Total.StringFixed(2)),
		zap.String("discount_kind", string(in.Kind)),
	)
	return r, nil
}
