package cart

import (
	"sync"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Store owns a cart State. Commands run to completion under a mutex.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{}
}

// State returns the current cart contents.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces cmd against the current state.
func (s *Store) Dispatch(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, cmd)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Add increments the quantity for p, inserting it with quantity 1 if absent.
func (s *Store) Add(p product.Product) {
	// Add never fails.
	_ = s.Dispatch(Add{Product: p})
}

// UpdateQuantity sets the quantity for id. It returns ErrInvalidQuantity for
// quantity <= 0 and ErrEntryNotFound for an unknown id; the cart is left
// unchanged in both cases.
func (s *Store) UpdateQuantity(id string, quantity int) error {
	return s.Dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

// Remove deletes the entry for id, or returns ErrEntryNotFound.
func (s *Store) Remove(id string) error {
	return s.Dispatch(Remove{ID: id})
}

// Clear empties the cart.
func (s *Store) Clear() {
	_ = s.Dispatch(Clear{})
}

// Drain empties the cart and returns what it held, atomically.
func (s *Store) Drain() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state, _ = Reduce(s.state, Clear{})
	return prev
}
