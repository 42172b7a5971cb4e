// Package dispatch solves the two-zone economic dispatch problem.
//
// For each bid i there is a decision variable g_i ∈ [0, amount_i], and a
// single transfer variable t ∈ [-limit, +limit] on the link joining the two
// zones (positive t flows South -> North):
//
//	Σ south g_i - t = load(South)
//	Σ north g_i + t = load(North)
//	minimize Σ g_i × price_i
//
// The zonal marginal price is the dual of the zone's balance constraint: the
// cost of serving the next unit of load there.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"grid-market-sim/internal/model"
)

// Problem is one period's clearing input, after auto-fill.
type Problem struct {
	Bids            []model.Bid
	Loads           [model.NumZones]float64
	TransferLimitMW float64
}

// Solver runs the dispatch LP. The zero value is not usable; call New.
type Solver struct {
	// Timeout bounds a single Solve call. Expiry is surfaced as an error and
	// the period stays clearable.
	Timeout time.Duration

	// PriceDelta is the load increment used to evaluate zonal marginal
	// prices as a finite difference of the optimal-cost function.
	PriceDelta float64
}

func New() *Solver {
	return &Solver{Timeout: 5 * time.Second, PriceDelta: 1e-3}
}

// Solve computes the least-cost dispatch and the zonal marginal prices.
// Returns model.ErrInfeasibleDispatch when load cannot be met; no partial
// result is produced in that case.
func (s *Solver) Solve(ctx context.Context, p Problem) (*model.DispatchResult, error) {
	if p.TransferLimitMW < 0 {
		return nil, fmt.Errorf("transfer limit must be >= 0, got %v", p.TransferLimitMW)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	type outcome struct {
		res *model.DispatchResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.solve(p)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("dispatch solve: %w", ctx.Err())
	}
}

func (s *Solver) solve(p Problem) (*model.DispatchResult, error) {
	cost, gen, transfer, err := solveLP(p.Bids, p.Loads, p.TransferLimitMW)
	if err != nil {
		return nil, err
	}

	res := &model.DispatchResult{
		AcceptedMW: make(map[int]float64, len(p.Bids)),
		TransferMW: transfer,
		TotalCost:  cost,
	}
	for i, bid := range p.Bids {
		res.AcceptedMW[bid.RoleID] += clamp(gen[i], 0, bid.AmountMW)
	}
	for z := 0; z < model.NumZones; z++ {
		price, err := s.zonalPrice(p, model.Zone(z), cost)
		if err != nil {
			return nil, err
		}
		res.Prices[z] = price
	}
	return res, nil
}

// zonalPrice evaluates the dual of a zone's balance constraint as the right
// derivative of the optimal cost in that zone's load. When the incremented
// problem is infeasible (load sits exactly at deliverable capacity) the left
// derivative is used instead; both are valid subgradients of the piecewise
// linear cost curve, and the right one matches the "next unit served" reading.
func (s *Solver) zonalPrice(p Problem, zone model.Zone, baseCost float64) (float64, error) {
	delta := s.PriceDelta
	if delta <= 0 {
		delta = 1e-3
	}

	loads := p.Loads
	loads[zone] += delta
	if cost, _, _, err := solveLP(p.Bids, loads, p.TransferLimitMW); err == nil {
		return roundPrice((cost - baseCost) / delta), nil
	} else if !errors.Is(err, model.ErrInfeasibleDispatch) {
		return 0, err
	}

	loads = p.Loads
	loads[zone] -= delta
	cost, _, _, err := solveLP(p.Bids, loads, p.TransferLimitMW)
	if err != nil {
		return 0, fmt.Errorf("pricing zone %s: %w", zone, err)
	}
	return roundPrice((baseCost - cost) / delta), nil
}

// solveLP builds the general-form LP, converts it to standard form, and runs
// gonum's simplex. Variables are [g_1..g_n, t].
func solveLP(bids []model.Bid, loads [model.NumZones]float64, limit float64) (cost float64, gen []float64, transfer float64, err error) {
	n := len(bids)
	nv := n + 1 // generation variables plus the transfer variable

	c := make([]float64, nv)
	for i, bid := range bids {
		c[i] = bid.Price
	}

	// Bounds as inequalities: g_i <= amount, -g_i <= 0, |t| <= limit.
	ineq := mat.NewDense(2*nv, nv, nil)
	h := make([]float64, 2*nv)
	for i, bid := range bids {
		ineq.Set(2*i, i, 1)
		h[2*i] = bid.AmountMW
		ineq.Set(2*i+1, i, -1)
		h[2*i+1] = 0
	}
	ineq.Set(2*n, n, 1)
	h[2*n] = limit
	ineq.Set(2*n+1, n, -1)
	h[2*n+1] = limit

	// Zonal balance equalities. The transfer enters the two rows with
	// opposite signs: one shared link.
	eq := mat.NewDense(model.NumZones, nv, nil)
	for i, bid := range bids {
		eq.Set(int(bid.Zone), i, 1)
	}
	eq.Set(int(model.ZoneSouth), n, -1)
	eq.Set(int(model.ZoneNorth), n, 1)
	b := []float64{loads[model.ZoneSouth], loads[model.ZoneNorth]}

	cStd, aStd, bStd := lp.Convert(c, ineq, h, eq, b)
	opt, xStd, err := lp.Simplex(cStd, aStd, bStd, 1e-10, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return 0, nil, 0, model.ErrInfeasibleDispatch
		}
		return 0, nil, 0, fmt.Errorf("dispatch solve: %w", err)
	}

	// Convert splits each free variable x into x⁺ - x⁻.
	gen = make([]float64, n)
	for i := 0; i < n; i++ {
		gen[i] = snapZero(xStd[i] - xStd[nv+i])
	}
	transfer = snapZero(xStd[n] - xStd[nv+n])
	return opt, gen, transfer, nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func snapZero(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 0
	}
	return x
}

// roundPrice trims finite-difference noise so prices print and compare cleanly.
func roundPrice(p float64) float64 {
	return math.Round(p*1e6) / 1e6
}
