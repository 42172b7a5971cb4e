package market

import (
	"math/rand"

	"grid-market-sim/internal/model"
)

// BidPolicy produces a bid for a role that did not submit one itself.
// ceilingMW is the role's stochastic generation ceiling for the period
// (meaningful for renewables; thermal policies ignore it).
type BidPolicy func(role model.Role, ceilingMW float64, rng *rand.Rand) model.Bid

// PolicyParams tunes the default policies. The reference values mirror the
// classroom game this simulator was built for; both knobs are configurable
// because reasonable variants exist.
type PolicyParams struct {
	// RenewableOffset shifts the renewable bid price up from the negative
	// tax-credit floor: price = offset - credit. With credit 30 and offset 10
	// renewables bid -20, undercutting any positive-cost generator.
	RenewableOffset float64

	// ThermalMarkupFrac bounds the random markup thermal roles add on top of
	// marginal cost: markup ∈ [0, frac × cost]. Models imperfect information.
	ThermalMarkupFrac float64
}

func DefaultPolicyParams() PolicyParams {
	return PolicyParams{RenewableOffset: 10, ThermalMarkupFrac: 0.2}
}

// DefaultPolicies returns the per-fuel bid policies used when a seat is idle
// at clearing time.
func DefaultPolicies(p PolicyParams) map[model.FuelType]BidPolicy {
	renewable := func(role model.Role, ceilingMW float64, _ *rand.Rand) model.Bid {
		return model.Bid{
			RoleID:   role.ID,
			AmountMW: ceilingMW,
			Price:    p.RenewableOffset - role.TaxCredit,
			Zone:     role.Zone,
			Auto:     true,
		}
	}
	thermal := func(role model.Role, _ float64, rng *rand.Rand) model.Bid {
		markup := 0.0
		if bound := int(p.ThermalMarkupFrac * role.MarginalCost); bound > 0 {
			markup = float64(rng.Intn(bound + 1))
		}
		return model.Bid{
			RoleID:   role.ID,
			AmountMW: role.CapacityMW,
			Price:    role.MarginalCost + markup,
			Zone:     role.Zone,
			Auto:     true,
		}
	}
	return map[model.FuelType]BidPolicy{
		model.FuelWind:     renewable,
		model.FuelSolar:    renewable,
		model.FuelBaseload: thermal,
		model.FuelPeaking:  thermal,
	}
}

// AutoBidder fills the book for roles without a submitted bid. It runs once
// per clearing, before the solver.
type AutoBidder struct {
	policies map[model.FuelType]BidPolicy
	rng      *rand.Rand
}

func NewAutoBidder(policies map[model.FuelType]BidPolicy, rng *rand.Rand) *AutoBidder {
	return &AutoBidder{policies: policies, rng: rng}
}

// Fill synthesizes a bid for every role missing from the book.
// ceilings maps role ID to the period's renewable generation ceiling.
func (a *AutoBidder) Fill(book *Book, roles []model.Role, ceilings map[int]float64) error {
	for _, role := range roles {
		if book.HasSubmitted(role.ID) {
			continue
		}
		policy, ok := a.policies[role.Fuel]
		if !ok {
			continue
		}
		bid := policy(role, ceilings[role.ID], a.rng)
		if err := book.Submit(bid); err != nil {
			return err
		}
	}
	return nil
}
