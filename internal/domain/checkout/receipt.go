package checkout

import (
	"time"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/discount"
)

// HomePath is where the client is sent after a confirmed checkout.
const HomePath = "/"

// Receipt describes a confirmed checkout. Nothing is persisted; the receipt
// only travels back to the caller and into the log.
type Receipt struct {
	OrderID  string
	Entries  []cart.Entry
	Discount discount.Input
	Totals   discount.Totals
	PlacedAt time.Time
	Redirect string
}
