// Package cart implements the shopping cart as an immutable State updated by
// a reducer. Store owns one State and serialises commands against it.
package cart

import (
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

var (
	// ErrEntryNotFound is returned when a command names a product that is
	// not in the cart.
	ErrEntryNotFound = errors.New("cart entry not found")
	// ErrInvalidQuantity is returned when a quantity update is not positive.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Entry is one line of the cart.
type Entry struct {
	Product  product.Product
	Quantity int
}

// State is the cart contents. Entries are unique by product id and kept in
// the order they were first added. The zero value is an empty cart.
type State struct {
	entries []Entry
}

// Entries returns a copy of the cart lines.
func (s State) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Len returns the number of distinct products in the cart.
func (s State) Len() int {
	return len(s.entries)
}

// Count returns the total quantity across all entries.
func (s State) Count() int {
	n := 0
	for _, e := range s.entries {
		n += e.Quantity
	}
	return n
}

// Find returns the entry for the product id.
func (s State) Find(id string) (Entry, bool) {
	if i := s.index(id); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

func (s State) index(id string) int {
	return slices.IndexFunc(s.entries, func(e Entry) bool {
		return e.Product.ID == id
	})
}

// Command is a cart mutation understood by Reduce.
type Command interface {
	apply(s State) (State, error)
}

// Add puts one unit of Product into the cart.
type Add struct {
	Product product.Product
}

// UpdateQuantity sets the quantity of an existing entry.
type UpdateQuantity struct {
	ID       string
	Quantity int
}

// Remove deletes the entry for ID.
type Remove struct {
	ID string
}

// Clear empties the cart.
type Clear struct{}

// Reduce applies cmd to s and returns the new state. On error the returned
// state is s unchanged.
func Reduce(s State, cmd Command) (State, error) {
	next, err := cmd.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

func (c Add) apply(s State) (State, error) {
	entries := slices.Clone(s.entries)
	if i := s.index(c.Product.ID); i >= 0 {
		entries[i].Quantity++
		return State{entries: entries}, nil
	}
	return State{entries: append(entries, Entry{Product: c.Product, Quantity: 1})}, nil
}

func (c UpdateQuantity) apply(s State) (State, error) {
	if c.Quantity <= 0 {
		return s, ErrInvalidQuantity
	}
	i := s.index(c.ID)
	if i < 0 {
		return s, ErrEntryNotFound
	}
	entries := slices.Clone(s.entries)
	entries[i].Quantity = c.Quantity
	return State{entries: entries}, nil
}

func (c Remove) apply(s State) (State, error) {
	i := s.index(c.ID)
	if i < 0 {
		return s, ErrEntryNotFound
	}
	return State{entries: slices.Delete(slices.Clone(s.entries), i, i+1)}, nil
}

func (Clear) apply(State) (State, error) {
	return State{}, nil
}
