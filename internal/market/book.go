package market

import (
	"sort"
	"sync"

	"grid-market-sim/internal/model"
)

// Book holds the bids for the active period, at most one per role.
// It is created empty at period start, frozen by the clearing action, and
// reset when the period advances.
type Book struct {
	mu   sync.Mutex
	bids map[int]model.Bid
}

func NewBook() *Book {
	return &Book{bids: make(map[int]model.Bid)}
}

// Submit records a bid for a role. Duplicate submissions are a first-wins
// no-op reported as model.ErrAlreadySubmitted; a negative amount is rejected
// as model.ErrInvalidBid. Neither error mutates the book.
func (b *Book) Submit(bid model.Bid) error {
	if bid.AmountMW < 0 {
		return model.ErrInvalidBid
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.bids[bid.RoleID]; ok {
		return model.ErrAlreadySubmitted
	}
	b.bids[bid.RoleID] = bid
	return nil
}

// HasSubmitted reports whether the role already holds a bid this period.
func (b *Book) HasSubmitted(roleID int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bids[roleID]
	return ok
}

// All returns the current bids ordered by role ID.
func (b *Book) All() []model.Bid {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Bid, 0, len(b.bids))
	for _, bid := range b.bids {
		out = append(out, bid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out
}

// Get returns the bid for a role, if present.
func (b *Book) Get(roleID int) (model.Bid, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bid, ok := b.bids[roleID]
	return bid, ok
}

// Reset empties the book for a new period.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = make(map[int]model.Bid)
}
