// Package game owns round/period progression and orchestrates bid collection,
// auto-bidding, dispatch, and settlement for one running market game.
package game

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"grid-market-sim/internal/config"
	"grid-market-sim/internal/dispatch"
	"grid-market-sim/internal/history"
	"grid-market-sim/internal/market"
	"grid-market-sim/internal/model"
	"grid-market-sim/internal/settle"
)

const maxRounds = 2

// Options bundles the injectable collaborators. Zero fields get defaults.
type Options struct {
	// Rand seeds the auto-bidder markup and the forecast noise. Defaults to
	// a time-seeded source; tests pass a fixed seed.
	Rand *rand.Rand

	Forecaster Forecaster
	Solver     *dispatch.Solver
	Sinks      []history.Sink
}

// PeriodResult is the read-only outcome of one cleared period.
type PeriodResult struct {
	Round    int
	Period   int
	Bids     []model.Bid
	Dispatch *model.DispatchResult
}

// Game is the shared state machine. All mutation happens under its mutex;
// reads copy snapshots out. Waiters are woken through a broadcast channel
// replaced on every transition.
type Game struct {
	mu sync.RWMutex

	cfg       *config.Config
	roles     []model.Role
	rolesByID map[int]model.Role

	round  int
	period int // 1..periods while playable; periods+1 means round complete

	book     *market.Book
	auto     *market.AutoBidder
	solver   *dispatch.Solver
	ledger   *settle.Ledger
	forecast Forecaster

	ceilings map[int]float64 // role ID -> renewable bid ceiling for the period
	joined   map[int]int     // participant -> role ID for the current round
	results  []PeriodResult  // cleared periods of the current round
	sinks    []history.Sink

	change chan struct{} // closed and replaced on every transition
}

func New(cfg *config.Config, opts Options) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	forecast := opts.Forecaster
	if forecast == nil {
		forecast = NewGaussianForecaster(cfg.Policy.ForecastSigma, rng)
	}
	solver := opts.Solver
	if solver == nil {
		solver = dispatch.New()
	}

	roles := cfg.ModelRoles()
	byID := make(map[int]model.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	policies := market.DefaultPolicies(market.PolicyParams{
		RenewableOffset:   cfg.Policy.RenewableOffset,
		ThermalMarkupFrac: cfg.Policy.ThermalMarkup,
	})

	g := &Game{
		cfg:       cfg,
		roles:     roles,
		rolesByID: byID,
		round:     1,
		period:    1,
		book:      market.NewBook(),
		auto:      market.NewAutoBidder(policies, rng),
		solver:    solver,
		ledger:    settle.NewLedger(roles, cfg.Market.Periods),
		forecast:  forecast,
		joined:    make(map[int]int),
		sinks:     opts.Sinks,
		change:    make(chan struct{}),
	}
	g.refreshCeilings()
	return g, nil
}

// ── Participant operations ───────────────────────────

// Join binds a participant identity to its role for the active round and
// returns the role card. Joining twice is a no-op.
func (g *Game) Join(participant int) (model.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	roleID, ok := g.cfg.RoleForRound(participant, g.round)
	if !ok {
		return model.Role{}, model.ErrUnknownParticipant
	}
	g.joined[participant] = roleID
	return g.rolesByID[roleID], nil
}

// SubmitBid places the participant's bid for the active period. The amount is
// derived from the role: firm capacity for thermal seats, the current
// stochastic ceiling for renewables. Concurrent calls are safe; a same-role
// race is first-wins and the loser sees ErrAlreadySubmitted.
func (g *Game) SubmitBid(participant int, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return model.ErrInvalidBid
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.period > g.cfg.Market.Periods {
		return model.ErrInvalidTransition
	}
	roleID, ok := g.cfg.RoleForRound(participant, g.round)
	if !ok {
		return model.ErrUnknownParticipant
	}
	role := g.rolesByID[roleID]

	amount := role.CapacityMW
	if role.Fuel.Renewable() {
		amount = g.ceilings[role.ID]
	}
	return g.book.Submit(model.Bid{
		RoleID:   role.ID,
		AmountMW: amount,
		Price:    price,
		Zone:     role.Zone,
	})
}

// Wait blocks until the next state transition (period advance, round advance)
// or until ctx is cancelled. No polling: waiters park on a channel that the
// transition closes.
func (g *Game) Wait(ctx context.Context) error {
	g.mu.RLock()
	ch := g.change
	g.mu.RUnlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── Operator operations ──────────────────────────────

// ClearMarket runs one clearing: auto-fill missing bids, solve the dispatch,
// settle, archive, then advance the period. A solver failure leaves all state
// unchanged except for the synthesized bids, which stay in the book so a
// retry does not duplicate them.
func (g *Game) ClearMarket(ctx context.Context) (*PeriodResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	periods := g.cfg.Market.Periods
	if g.period > periods {
		return nil, model.ErrAlreadyCleared
	}
	period := g.period

	if err := g.auto.Fill(g.book, g.roles, g.ceilings); err != nil {
		return nil, fmt.Errorf("auto-bid fill: %w", err)
	}
	bids := g.book.All()

	res, err := g.solver.Solve(ctx, dispatch.Problem{
		Bids: bids,
		Loads: [model.NumZones]float64{
			g.cfg.Market.LoadsSouth[period-1],
			g.cfg.Market.LoadsNorth[period-1],
		},
		TransferLimitMW: g.cfg.Market.TransmissionLimits[g.round-1],
	})
	if err != nil {
		return nil, err
	}
	if err := g.ledger.Settle(period, res, g.roles); err != nil {
		return nil, err
	}

	pr := PeriodResult{Round: g.round, Period: period, Bids: bids, Dispatch: res}
	g.results = append(g.results, pr)
	g.archive(pr)

	g.period++
	if g.period <= periods {
		g.refreshCeilings()
	}
	g.book.Reset()
	g.notify()
	return &pr, nil
}

// AdvanceRound moves from round 1 to round 2 once all periods have cleared:
// period resets, bid/price/ledger history clears, and every joined
// participant is remapped to its round-2 role.
func (g *Game) AdvanceRound() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.round != 1 || g.period <= g.cfg.Market.Periods {
		return model.ErrInvalidTransition
	}
	g.round = 2
	g.period = 1
	g.results = nil
	g.book.Reset()
	g.ledger.Reset(g.roles)

	for participant := range g.joined {
		if roleID, ok := g.cfg.RoleForRound(participant, g.round); ok {
			g.joined[participant] = roleID
		} else {
			delete(g.joined, participant)
		}
	}

	g.refreshCeilings()
	g.notify()
	return nil
}

// ── Views ────────────────────────────────────────────

// Status is a consistent snapshot of game progress.
type Status struct {
	Round         int
	Period        int
	Periods       int
	RoundComplete bool
	GameOver      bool
	Ceilings      map[int]float64
	Submitted     []int // role IDs with a bid in the active period
}

func (g *Game) Snapshot() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	periods := g.cfg.Market.Periods
	st := Status{
		Round:         g.round,
		Period:        g.period,
		Periods:       periods,
		RoundComplete: g.period > periods,
		GameOver:      g.round == maxRounds && g.period > periods,
		Ceilings:      make(map[int]float64, len(g.ceilings)),
	}
	for id, c := range g.ceilings {
		st.Ceilings[id] = c
	}
	for _, bid := range g.book.All() {
		st.Submitted = append(st.Submitted, bid.RoleID)
	}
	return st
}

// Results returns the cleared periods of the current round.
func (g *Game) Results() []PeriodResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]PeriodResult, len(g.results))
	for i, pr := range g.results {
		out[i] = PeriodResult{
			Round:    pr.Round,
			Period:   pr.Period,
			Bids:     append([]model.Bid(nil), pr.Bids...),
			Dispatch: pr.Dispatch.Clone(),
		}
	}
	return out
}

// Bids returns the active period's bids, for display.
func (g *Game) Bids() []model.Bid {
	return g.book.All()
}

// ParticipantView is what one participant sees between periods.
type ParticipantView struct {
	Participant int
	Role        model.Role
	Round       int
	Period      int

	CeilingMW    float64 // renewables only
	CumRevenue   float64
	CumProfit    float64
	AvgProfitMW  float64 // cumulative profit per dispatched MW
	DispatchedMW float64
}

func (g *Game) View(participant int) (ParticipantView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roleID, ok := g.cfg.RoleForRound(participant, g.round)
	if !ok {
		return ParticipantView{}, model.ErrUnknownParticipant
	}
	role := g.rolesByID[roleID]

	v := ParticipantView{
		Participant: participant,
		Role:        role,
		Round:       g.round,
		Period:      g.period,
	}
	if role.Fuel.Renewable() {
		v.CeilingMW = g.ceilings[role.ID]
	}
	v.CumRevenue, v.CumProfit = g.ledger.Totals(role.ID)
	for _, pr := range g.results {
		v.DispatchedMW += pr.Dispatch.Accepted(role.ID)
	}
	if v.DispatchedMW > 0 {
		v.AvgProfitMW = v.CumProfit / v.DispatchedMW
	}
	return v, nil
}

// LedgerEntry exposes one settled period for a role.
func (g *Game) LedgerEntry(roleID, period int) (settle.Entry, bool) {
	return g.ledger.Entry(roleID, period)
}

// Roles returns the immutable roster.
func (g *Game) Roles() []model.Role {
	out := make([]model.Role, len(g.roles))
	copy(out, g.roles)
	return out
}

// ── Internals (called under g.mu) ────────────────────

func (g *Game) refreshCeilings() {
	g.ceilings = make(map[int]float64)
	for _, role := range g.roles {
		var profile []float64
		switch role.Fuel {
		case model.FuelWind:
			profile = g.cfg.Market.WindProfile
		case model.FuelSolar:
			profile = g.cfg.Market.SolarProfile
		default:
			continue
		}
		g.ceilings[role.ID] = g.forecast.Ceiling(role.NameplateMW, profile[g.period-1])
	}
}

func (g *Game) notify() {
	close(g.change)
	g.change = make(chan struct{})
}

// archive emits the settlement record. Sink failures are logged, not fatal:
// archival must not block the game.
func (g *Game) archive(pr PeriodResult) {
	roleOwner := make(map[int]int, len(g.joined))
	for participant, roleID := range g.joined {
		roleOwner[roleID] = participant
	}

	rec := history.Record{
		ID:         uuid.New().String(),
		At:         time.Now().UTC(),
		Round:      pr.Round,
		Period:     pr.Period,
		PriceSouth: pr.Dispatch.Prices[model.ZoneSouth],
		PriceNorth: pr.Dispatch.Prices[model.ZoneNorth],
		TransferMW: pr.Dispatch.TransferMW,
		TotalCost:  pr.Dispatch.TotalCost,
	}
	for _, bid := range pr.Bids {
		role := g.rolesByID[bid.RoleID]
		row := history.Row{
			RoleID:      role.ID,
			Fuel:        role.Fuel,
			Zone:        role.Zone.String(),
			Participant: roleOwner[role.ID],
			BidMW:       bid.AmountMW,
			BidPrice:    bid.Price,
			AutoBid:     bid.Auto,
			DispatchMW:  pr.Dispatch.Accepted(role.ID),
		}
		if e, ok := g.ledger.Entry(role.ID, pr.Period); ok {
			row.Revenue = e.Revenue
			row.Profit = e.Profit
			row.CumRevenue = e.CumRevenue
			row.CumProfit = e.CumProfit
		}
		rec.Rows = append(rec.Rows, row)
	}

	for _, sink := range g.sinks {
		if err := sink.Append(rec); err != nil {
			log.Printf("[game] history sink: %v", err)
		}
	}
}
