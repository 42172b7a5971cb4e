// Package history archives settlement records after each successful clearing.
// The core emits records; sinks decide storage format and retention.
package history

import (
	"sync"
	"time"

	"grid-market-sim/internal/model"
)

// Record is the immutable settlement summary for one cleared period.
type Record struct {
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Round  int       `json:"round"`
	Period int       `json:"period"`

	PriceSouth float64 `json:"price_south"`
	PriceNorth float64 `json:"price_north"`
	TransferMW float64 `json:"transfer_mw"`
	TotalCost  float64 `json:"total_cost"`

	Rows []Row `json:"rows"`
}

// Row is one role's line in a settlement record.
type Row struct {
	RoleID      int            `json:"role_id"`
	Fuel        model.FuelType `json:"fuel"`
	Zone        string         `json:"zone"`
	Participant int            `json:"participant,omitempty"`

	BidMW    float64 `json:"bid_mw"`
	BidPrice float64 `json:"bid_price"`
	AutoBid  bool    `json:"auto_bid"`

	DispatchMW float64 `json:"dispatch_mw"`
	Revenue    float64 `json:"revenue"`
	Profit     float64 `json:"profit"`
	CumRevenue float64 `json:"cum_revenue"`
	CumProfit  float64 `json:"cum_profit"`
}

// Sink receives settlement records. Implementations must tolerate being
// called once per cleared period, in order.
type Sink interface {
	Append(rec Record) error
}

// MemorySink keeps records in memory for the API's results views.
type MemorySink struct {
	mu   sync.RWMutex
	recs []Record
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

// Records returns a copy of everything archived so far.
func (s *MemorySink) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.recs))
	copy(out, s.recs)
	return out
}
