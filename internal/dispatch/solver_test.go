package dispatch

import (
	"context"
	"errors"
	"math"
	"testing"

	"grid-market-sim/internal/model"
)

const eps = 1e-6

func solve(t *testing.T, p Problem) *model.DispatchResult {
	t.Helper()
	res, err := New().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	checkFeasible(t, p, res)
	return res
}

// checkFeasible enforces the hard invariants every result must satisfy:
// zonal balance, transfer bound, and per-bid dispatch bounds.
func checkFeasible(t *testing.T, p Problem, res *model.DispatchResult) {
	t.Helper()
	var zonal [model.NumZones]float64
	for _, bid := range p.Bids {
		q := res.Accepted(bid.RoleID)
		if q < -eps || q > bid.AmountMW+eps {
			t.Errorf("role %d dispatched %v outside [0, %v]", bid.RoleID, q, bid.AmountMW)
		}
		zonal[bid.Zone] += q
	}
	if math.Abs(res.TransferMW) > p.TransferLimitMW+eps {
		t.Errorf("transfer %v exceeds limit %v", res.TransferMW, p.TransferLimitMW)
	}
	south := zonal[model.ZoneSouth] - res.TransferMW
	north := zonal[model.ZoneNorth] + res.TransferMW
	if math.Abs(south-p.Loads[model.ZoneSouth]) > 1e-4 {
		t.Errorf("south balance: generation-transfer = %v, load = %v", south, p.Loads[model.ZoneSouth])
	}
	if math.Abs(north-p.Loads[model.ZoneNorth]) > 1e-4 {
		t.Errorf("north balance: generation+transfer = %v, load = %v", north, p.Loads[model.ZoneNorth])
	}
}

// Scenario: a cheap southern unit with headroom exports to the expensive
// north until the northern load is fully displaced. Both zones then price at
// the southern marginal unit.
func TestSolveExportsToExpensiveZone(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 500, Price: 10, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 100, Price: 20, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{400, 50},
		TransferLimitMW: 200,
	}
	res := solve(t, p)

	if got := res.Accepted(1); math.Abs(got-450) > 1e-4 {
		t.Errorf("south unit dispatched %v, want 450", got)
	}
	if got := res.Accepted(2); math.Abs(got) > 1e-4 {
		t.Errorf("north unit dispatched %v, want 0", got)
	}
	if math.Abs(res.TransferMW-50) > 1e-4 {
		t.Errorf("transfer %v, want 50", res.TransferMW)
	}
	if math.Abs(res.TotalCost-4500) > 1e-3 {
		t.Errorf("total cost %v, want 4500", res.TotalCost)
	}
	if math.Abs(res.Prices[model.ZoneSouth]-10) > 1e-3 {
		t.Errorf("south LMP %v, want 10", res.Prices[model.ZoneSouth])
	}
	if math.Abs(res.Prices[model.ZoneNorth]-10) > 1e-3 {
		t.Errorf("north LMP %v, want 10 (served by southern export)", res.Prices[model.ZoneNorth])
	}
}

// Same bids with the link removed: each zone balances from its own supply and
// prices at its own marginal unit.
func TestSolveZeroTransferLimit(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 500, Price: 10, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 100, Price: 20, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{400, 50},
		TransferLimitMW: 0,
	}
	res := solve(t, p)

	if got := res.Accepted(1); math.Abs(got-400) > 1e-4 {
		t.Errorf("south unit dispatched %v, want 400", got)
	}
	if got := res.Accepted(2); math.Abs(got-50) > 1e-4 {
		t.Errorf("north unit dispatched %v, want 50", got)
	}
	if math.Abs(res.TransferMW) > 1e-4 {
		t.Errorf("transfer %v, want 0", res.TransferMW)
	}
	if math.Abs(res.Prices[model.ZoneSouth]-10) > 1e-3 {
		t.Errorf("south LMP %v, want 10", res.Prices[model.ZoneSouth])
	}
	if math.Abs(res.Prices[model.ZoneNorth]-20) > 1e-3 {
		t.Errorf("north LMP %v, want 20", res.Prices[model.ZoneNorth])
	}
}

// With a binding link, the two zones separate: the import-constrained zone
// prices at its own marginal unit.
func TestSolveCongestedLinkSplitsPrices(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 500, Price: 10, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 100, Price: 20, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{400, 50},
		TransferLimitMW: 20,
	}
	res := solve(t, p)

	if math.Abs(res.TransferMW-20) > 1e-4 {
		t.Errorf("transfer %v, want the full 20 MW limit", res.TransferMW)
	}
	if math.Abs(res.Prices[model.ZoneSouth]-10) > 1e-3 {
		t.Errorf("south LMP %v, want 10", res.Prices[model.ZoneSouth])
	}
	if math.Abs(res.Prices[model.ZoneNorth]-20) > 1e-3 {
		t.Errorf("north LMP %v, want 20", res.Prices[model.ZoneNorth])
	}
	if math.Abs(res.TotalCost-(420*10+30*20)) > 1e-3 {
		t.Errorf("total cost %v, want 4800", res.TotalCost)
	}
}

// Subsidized negative-price bids clear first, up to their cap, before any
// positive-price bid.
func TestSolvePrefersNegativePriceBids(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 100, Price: -20, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 500, Price: 15, Zone: model.ZoneSouth},
			{RoleID: 3, AmountMW: 50, Price: 5, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{300, 40},
		TransferLimitMW: 100,
	}
	res := solve(t, p)

	if got := res.Accepted(1); math.Abs(got-100) > 1e-4 {
		t.Errorf("subsidized bid dispatched %v, want full 100", got)
	}
	if math.Abs(res.Prices[model.ZoneSouth]-15) > 1e-3 {
		t.Errorf("south LMP %v, want 15 (marginal thermal unit)", res.Prices[model.ZoneSouth])
	}
}

// Equal-price bids may be split arbitrarily; only the zonal total and price
// are stable.
func TestSolveDegenerateTieAggregates(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 200, Price: 30, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 200, Price: 30, Zone: model.ZoneSouth},
			{RoleID: 3, AmountMW: 100, Price: 10, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{250, 50},
		TransferLimitMW: 0,
	}
	res := solve(t, p)

	total := res.Accepted(1) + res.Accepted(2)
	if math.Abs(total-250) > 1e-4 {
		t.Errorf("tied bids dispatched %v total, want 250", total)
	}
	if math.Abs(res.Prices[model.ZoneSouth]-30) > 1e-3 {
		t.Errorf("south LMP %v, want 30", res.Prices[model.ZoneSouth])
	}
}

func TestSolveInfeasibleZoneWithNoLink(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 500, Price: 10, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 100, Price: 20, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{400, 150},
		TransferLimitMW: 0,
	}
	_, err := New().Solve(context.Background(), p)
	if !errors.Is(err, model.ErrInfeasibleDispatch) {
		t.Fatalf("err = %v, want ErrInfeasibleDispatch", err)
	}
}

func TestSolveInfeasibleTotalShortage(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 100, Price: 10, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 100, Price: 20, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{400, 50},
		TransferLimitMW: 5000,
	}
	_, err := New().Solve(context.Background(), p)
	if !errors.Is(err, model.ErrInfeasibleDispatch) {
		t.Fatalf("err = %v, want ErrInfeasibleDispatch", err)
	}
}

func TestSolveDeterministic(t *testing.T) {
	p := Problem{
		Bids: []model.Bid{
			{RoleID: 1, AmountMW: 500, Price: 15, Zone: model.ZoneSouth},
			{RoleID: 2, AmountMW: 210, Price: -20, Zone: model.ZoneSouth},
			{RoleID: 3, AmountMW: 200, Price: 96, Zone: model.ZoneSouth},
			{RoleID: 4, AmountMW: 135, Price: -20, Zone: model.ZoneNorth},
			{RoleID: 5, AmountMW: 100, Price: 65, Zone: model.ZoneNorth},
			{RoleID: 6, AmountMW: 70, Price: -20, Zone: model.ZoneNorth},
		},
		Loads:           [model.NumZones]float64{600, 60},
		TransferLimitMW: 200,
	}
	first := solve(t, p)
	for i := 0; i < 5; i++ {
		again := solve(t, p)
		if math.Abs(again.TotalCost-first.TotalCost) > eps {
			t.Fatalf("run %d: total cost %v != %v", i, again.TotalCost, first.TotalCost)
		}
		if again.Prices != first.Prices {
			t.Fatalf("run %d: prices %v != %v", i, again.Prices, first.Prices)
		}
		for id, q := range first.AcceptedMW {
			if math.Abs(again.AcceptedMW[id]-q) > eps {
				t.Fatalf("run %d: role %d dispatched %v != %v", i, id, again.AcceptedMW[id], q)
			}
		}
	}
}

func TestSolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Problem{
		Bids:            []model.Bid{{RoleID: 1, AmountMW: 100, Price: 10, Zone: model.ZoneSouth}},
		Loads:           [model.NumZones]float64{50, 0},
		TransferLimitMW: 10,
	}
	// A pre-cancelled context may still lose the race to the (fast) solver;
	// either a result or a context error is acceptable, never a hang.
	res, err := New().Solve(ctx, p)
	if err == nil && res == nil {
		t.Fatal("got neither result nor error")
	}
}
