package model

// Bid is a single-segment offer to supply up to AmountMW at Price.
// Price may be negative: subsidized renewables bid below zero so that they
// clear ahead of any positive-cost generator.
type Bid struct {
	RoleID   int
	AmountMW float64
	Price    float64
	Zone     Zone

	// Auto marks bids synthesized at clearing time for roles that did not
	// submit one themselves.
	Auto bool
}

// DispatchResult is the outcome of clearing one period. It is produced
// exactly once per period and never mutated afterwards.
type DispatchResult struct {
	// AcceptedMW maps role ID to the dispatched quantity, 0 <= q <= bid amount.
	AcceptedMW map[int]float64

	// Prices holds the zonal marginal price ($/MWh): the cost at which the
	// next unit of load in that zone would be served.
	Prices [NumZones]float64

	// TransferMW is the realized flow on the inter-zone link.
	// Positive values flow South -> North.
	TransferMW float64

	// TotalCost is the optimal objective value, Σ accepted × bid price.
	TotalCost float64
}

// Accepted returns the dispatched quantity for a role, 0 if it had no bid.
func (d *DispatchResult) Accepted(roleID int) float64 {
	if d == nil {
		return 0
	}
	return d.AcceptedMW[roleID]
}

// Clone deep-copies the result so callers can hand out snapshots.
func (d *DispatchResult) Clone() *DispatchResult {
	if d == nil {
		return nil
	}
	out := *d
	out.AcceptedMW = make(map[int]float64, len(d.AcceptedMW))
	for id, q := range d.AcceptedMW {
		out.AcceptedMW[id] = q
	}
	return &out
}
