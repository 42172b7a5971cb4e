// Package settle turns dispatch results into per-role revenue and profit and
// keeps the running totals across periods.
package settle

import (
	"fmt"
	"sync"

	"grid-market-sim/internal/model"
)

// Entry is one role's settlement for one period.
// Cumulative figures are the period value plus the previous period's
// cumulative (zero before the first period).
type Entry struct {
	Revenue    float64
	Profit     float64
	CumRevenue float64
	CumProfit  float64
}

// settleFunc computes one period's revenue and profit from the zonal price
// and the accepted quantity. One function per fuel category.
type settleFunc func(role model.Role, price, acceptedMW float64) (revenue, profit float64)

func settlementFor(fuel model.FuelType) settleFunc {
	if fuel.Renewable() {
		// Renewables are paid the zonal price plus the tax credit.
		return func(role model.Role, price, q float64) (float64, float64) {
			revenue := (price + role.TaxCredit) * q
			return revenue, revenue - role.MarginalCost*q
		}
	}
	return func(role model.Role, price, q float64) (float64, float64) {
		revenue := price * q
		profit := revenue - role.MarginalCost*q
		if role.Fuel == model.FuelBaseload && q == 0 {
			// Baseload units cannot cycle freely; sitting out a period costs
			// the configured penalty.
			profit -= role.IdlePenalty
		}
		return revenue, profit
	}
}

// Ledger accumulates settlements for one round. Settling is idempotent per
// period: a second attempt for the same period is rejected, never
// double-applied.
type Ledger struct {
	mu      sync.RWMutex
	periods int
	entries map[int][]Entry // role ID -> entry per period, 1-based index-1
	settled []bool
}

func NewLedger(roles []model.Role, periods int) *Ledger {
	l := &Ledger{periods: periods}
	l.reset(roles)
	return l
}

func (l *Ledger) reset(roles []model.Role) {
	l.entries = make(map[int][]Entry, len(roles))
	for _, r := range roles {
		l.entries[r.ID] = make([]Entry, l.periods)
	}
	l.settled = make([]bool, l.periods)
}

// Reset clears all history for a new round.
func (l *Ledger) Reset(roles []model.Role) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset(roles)
}

// Settle applies one period's dispatch. Periods must be settled in order.
func (l *Ledger) Settle(period int, res *model.DispatchResult, roles []model.Role) error {
	if period < 1 || period > l.periods {
		return fmt.Errorf("settle period %d: out of range 1..%d", period, l.periods)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settled[period-1] {
		return model.ErrAlreadyCleared
	}
	if period > 1 && !l.settled[period-2] {
		return fmt.Errorf("settle period %d: period %d not settled yet", period, period-1)
	}

	for _, role := range roles {
		price := res.Prices[role.Zone]
		q := res.Accepted(role.ID)
		revenue, profit := settlementFor(role.Fuel)(role, price, q)

		e := Entry{Revenue: revenue, Profit: profit, CumRevenue: revenue, CumProfit: profit}
		if period > 1 {
			prev := l.entries[role.ID][period-2]
			e.CumRevenue += prev.CumRevenue
			e.CumProfit += prev.CumProfit
		}
		l.entries[role.ID][period-1] = e
	}
	l.settled[period-1] = true
	return nil
}

// Settled reports whether a period has been settled.
func (l *Ledger) Settled(period int) bool {
	if period < 1 || period > l.periods {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settled[period-1]
}

// Entry returns one role's settlement for a period, if settled.
func (l *Ledger) Entry(roleID, period int) (Entry, bool) {
	if period < 1 || period > l.periods {
		return Entry{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.settled[period-1] {
		return Entry{}, false
	}
	rows, ok := l.entries[roleID]
	if !ok {
		return Entry{}, false
	}
	return rows[period-1], true
}

// Totals returns a role's cumulative revenue and profit through the latest
// settled period (zeros when nothing has settled).
func (l *Ledger) Totals(roleID int) (revenue, profit float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows, ok := l.entries[roleID]
	if !ok {
		return 0, 0
	}
	for p := l.periods; p >= 1; p-- {
		if l.settled[p-1] {
			return rows[p-1].CumRevenue, rows[p-1].CumProfit
		}
	}
	return 0, 0
}
