package acceptance

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/checkout"
	"github.com/xenking/kart-storefront/internal/domain/discount"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// scriptedSource serves pages defined by the scenario. TotalPages is left
// unset so the catalog falls back to its default page count.
type scriptedSource struct {
	mu      sync.Mutex
	pages   map[int][]product.Product
	failing map[int]string
}

func (s *scriptedSource) FetchPage(_ context.Context, page int) (*product.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.failing[page]; ok {
		return nil, errors.New(msg)
	}
	return &product.Page{Products: s.pages[page]}, nil
}

type storefront struct {
	source   *scriptedSource
	catalog  *catalog.Store
	cart     *cart.Store
	checkout *checkout.Service

	totals  discount.Totals
	receipt *checkout.Receipt
	err     error
}

func (s *storefront) reset() {
	s.source = &scriptedSource{
		pages:   map[int][]product.Product{},
		failing: map[int]string{},
	}
	s.catalog = catalog.NewStore(s.source, nil)
	s.cart = cart.NewStore()
	s.checkout = checkout.NewService()
	s.totals = discount.Totals{}
	s.receipt = nil
	s.err = nil
}

func (s *storefront) sourceServesPage(page int, table *godog.Table) error {
	var products []product.Product
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		price, err := decimal.NewFromString(row.Cells[2].Value)
		if err != nil {
			return errors.Wrapf(err, "row %d price", i)
		}
		products = append(products, product.Product{
			ID:    row.Cells[0].Value,
			Title: row.Cells[1].Value,
			Price: price,
		})
	}
	s.source.mu.Lock()
	s.source.pages[page] = products
	s.source.mu.Unlock()
	return nil
}

func (s *storefront) sourceFailsPage(page int, msg string) error {
	s.source.mu.Lock()
	s.source.failing[page] = msg
	s.source.mu.Unlock()
	return nil
}

func (s *storefront) fetchPage(page int) error {
	if err := s.catalog.SetPage(page); err != nil {
		return err
	}
	// A failed fetch is recorded in the catalog state.
	s.err = s.catalog.FetchPage(context.Background(), page)
	return nil
}

func (s *storefront) tryGoToPage(page int) error {
	s.err = s.catalog.SetPage(page)
	return nil
}

func (s *storefront) search(query string) error {
	s.catalog.SetSearchQuery(query)
	return s.fetchPage(1)
}

func (s *storefront) addProduct(id string) error {
	p, err := s.catalog.Lookup(id)
	if err != nil {
		return err
	}
	s.cart.Add(p)
	return nil
}

func (s *storefront) setQuantity(id string, quantity int) error {
	return s.cart.UpdateQuantity(id, quantity)
}

func (s *storefront) trySetQuantity(id string, quantity int) error {
	s.err = s.cart.UpdateQuantity(id, quantity)
	return nil
}

func (s *storefront) priceCart(kind, amount string) error {
	in, err := discountInput(kind, amount)
	if err != nil {
		return err
	}
	s.totals, err = discount.Compute(s.cart.State().Entries(), in)
	return err
}

func (s *storefront) checkOutWith(kind, amount string) error {
	in, err := discountInput(kind, amount)
	if err != nil {
		return err
	}
	s.receipt, err = s.checkout.Checkout(context.Background(), s.cart, in)
	return err
}

func (s *storefront) tryCheckOut() error {
	s.receipt, s.err = s.checkout.Checkout(context.Background(), s.cart, discount.Input{})
	return nil
}

func discountInput(kind, amount string) (discount.Input, error) {
	k, err := discount.ParseKind(kind)
	if err != nil {
		return discount.Input{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return discount.Input{}, errors.Wrap(err, "amount")
	}
	return discount.Input{Amount: a, Kind: k}, nil
}

func (s *storefront) catalogStatusIs(want string) error {
	if got := s.catalog.Snapshot().Status; string(got) != want {
		return errors.Errorf("status is %q, want %q", got, want)
	}
	return nil
}

func (s *storefront) catalogErrorContains(want string) error {
	if got := s.catalog.Snapshot().Error; !strings.Contains(got, want) {
		return errors.Errorf("error %q does not contain %q", got, want)
	}
	return nil
}

func ids(products []product.Product) string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return strings.Join(out, ",")
}

func (s *storefront) catalogShows(want string) error {
	if got := ids(s.catalog.Snapshot().Items); got != want {
		return errors.Errorf("items are %q, want %q", got, want)
	}
	return nil
}

func (s *storefront) visibleAre(want string) error {
	if got := ids(s.catalog.Snapshot().Visible()); got != want {
		return errors.Errorf("visible products are %q, want %q", got, want)
	}
	return nil
}

func (s *storefront) totalPagesIs(want int) error {
	if got := s.catalog.Snapshot().TotalPages; got != want {
		return errors.Errorf("total pages is %d, want %d", got, want)
	}
	return nil
}

func (s *storefront) currentPageIs(want int) error {
	if got := s.catalog.Snapshot().CurrentPage; got != want {
		return errors.Errorf("current page is %d, want %d", got, want)
	}
	return nil
}

func (s *storefront) requestFailsWith(want string) error {
	if s.err == nil {
		return errors.Errorf("expected error %q, got none", want)
	}
	if !strings.Contains(s.err.Error(), want) {
		return errors.Errorf("error %q does not contain %q", s.err, want)
	}
	return nil
}

func (s *storefront) cartHolds(entries, items int) error {
	st := s.cart.State()
	if st.Len() != entries || st.Count() != items {
		return errors.Errorf("cart holds %d entries with %d items, want %d with %d",
			st.Len(), st.Count(), entries, items)
	}
	return nil
}

func (s *storefront) productHasQuantity(id string, want int) error {
	e, ok := s.cart.State().Find(id)
	if !ok {
		return errors.Errorf("product %q is not in the cart", id)
	}
	if e.Quantity != want {
		return errors.Errorf("quantity is %d, want %d", e.Quantity, want)
	}
	return nil
}

func equalMoney(name string, got decimal.Decimal, want string) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Round(2).Equal(w) {
		return errors.Errorf("%s is %s, want %s", name, got.StringFixed(2), want)
	}
	return nil
}

func (s *storefront) subtotalIs(want string) error {
	return equalMoney("subtotal", s.totals.Subtotal, want)
}

func (s *storefront) totalIs(want string) error {
	return equalMoney("total", s.totals.Total, want)
}

func (s *storefront) orderTotalIs(want string) error {
	if s.receipt == nil {
		return errors.New("no receipt")
	}
	return equalMoney("order total", s.receipt.Totals.Total, want)
}

func (s *storefront) orderRedirectsTo(want string) error {
	if s.receipt == nil {
		return errors.New("no receipt")
	}
	if s.receipt.Redirect != want {
		return errors.Errorf("redirect is %q, want %q", s.receipt.Redirect, want)
	}
	return nil
}

func (s *storefront) cartIsEmpty() error {
	if n := s.cart.State().Len(); n != 0 {
		return errors.Errorf("cart holds %d entries", n)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	s := &storefront{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the product source serves page (\d+) with:$`, s.sourceServesPage)
	ctx.Step(`^the product source fails page (\d+) with "([^"]*)"$`, s.sourceFailsPage)

	// When steps
	ctx.Step(`^I fetch page (\d+)$`, s.fetchPage)
	ctx.Step(`^I go to page (\d+)$`, s.fetchPage)
	ctx.Step(`^I try to go to page (\d+)$`, s.tryGoToPage)
	ctx.Step(`^I search for "([^"]*)"$`, s.search)
	ctx.Step(`^I add product "([^"]*)" to the cart$`, s.addProduct)
	ctx.Step(`^I set the quantity of product "([^"]*)" to (-?\d+)$`, s.setQuantity)
	ctx.Step(`^I try to set the quantity of product "([^"]*)" to (-?\d+)$`, s.trySetQuantity)
	ctx.Step(`^I price the cart with a (\w+) discount of ([\d.]+)$`, s.priceCart)
	ctx.Step(`^I check out with a (\w+) discount of ([\d.]+)$`, s.checkOutWith)
	ctx.Step(`^I try to check out$`, s.tryCheckOut)

	// Then steps
	ctx.Step(`^the catalog status is "([^"]*)"$`, s.catalogStatusIs)
	ctx.Step(`^the catalog error contains "([^"]*)"$`, s.catalogErrorContains)
	ctx.Step(`^the catalog shows products "([^"]*)"$`, s.catalogShows)
	ctx.Step(`^the visible products are "([^"]*)"$`, s.visibleAre)
	ctx.Step(`^the catalog has (\d+) total pages$`, s.totalPagesIs)
	ctx.Step(`^the current page is (\d+)$`, s.currentPageIs)
	ctx.Step(`^the request fails with "([^"]*)"$`, s.requestFailsWith)
	ctx.Step(`^the cart holds (\d+) entries with (\d+) items$`, s.cartHolds)
	ctx.Step(`^product "([^"]*)" has quantity (\d+)$`, s.productHasQuantity)
	ctx.Step(`^the subtotal is (-?[\d.]+)$`, s.subtotalIs)
	ctx.Step(`^the total is (-?[\d.]+)$`, s.totalIs)
	ctx.Step(`^the order total is (-?[\d.]+)$`, s.orderTotalIs)
	ctx.Step(`^the order redirects to "([^"]*)"$`, s.orderRedirectsTo)
	ctx.Step(`^the cart is empty$`, s.cartIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "storefront",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
