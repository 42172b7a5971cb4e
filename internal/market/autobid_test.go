package market

import (
	"math/rand"
	"testing"

	"grid-market-sim/internal/model"
)

var testRoles = []model.Role{
	{ID: 1, Fuel: model.FuelBaseload, Zone: model.ZoneSouth, CapacityMW: 500, MarginalCost: 15, IdlePenalty: 2000},
	{ID: 2, Fuel: model.FuelWind, Zone: model.ZoneSouth, NameplateMW: 300, MarginalCost: 2, TaxCredit: 30},
	{ID: 3, Fuel: model.FuelPeaking, Zone: model.ZoneNorth, CapacityMW: 100, MarginalCost: 60},
	{ID: 4, Fuel: model.FuelSolar, Zone: model.ZoneNorth, NameplateMW: 150, MarginalCost: 1, TaxCredit: 30},
}

func newAutoBidder(seed int64) *AutoBidder {
	return NewAutoBidder(DefaultPolicies(DefaultPolicyParams()), rand.New(rand.NewSource(seed)))
}

func TestFillSynthesizesMissingBids(t *testing.T) {
	book := NewBook()
	if err := book.Submit(model.Bid{RoleID: 1, AmountMW: 500, Price: 25, Zone: model.ZoneSouth}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ceilings := map[int]float64{2: 210, 4: 135}
	if err := newAutoBidder(1).Fill(book, testRoles, ceilings); err != nil {
		t.Fatalf("fill: %v", err)
	}

	all := book.All()
	if len(all) != len(testRoles) {
		t.Fatalf("book holds %d bids, want %d", len(all), len(testRoles))
	}

	// The submitted bid is untouched.
	manual, _ := book.Get(1)
	if manual.Auto || manual.Price != 25 {
		t.Errorf("manual bid altered: %+v", manual)
	}
	for _, id := range []int{2, 3, 4} {
		bid, ok := book.Get(id)
		if !ok || !bid.Auto {
			t.Errorf("role %d: expected synthesized bid, got %+v", id, bid)
		}
	}
}

func TestRenewablePolicyBidsCeilingBelowZero(t *testing.T) {
	book := NewBook()
	ceilings := map[int]float64{2: 210, 4: 0}
	if err := newAutoBidder(1).Fill(book, testRoles, ceilings); err != nil {
		t.Fatalf("fill: %v", err)
	}

	wind, _ := book.Get(2)
	if wind.AmountMW != 210 {
		t.Errorf("wind bid amount %v, want the 210 MW ceiling", wind.AmountMW)
	}
	// offset 10 - credit 30
	if wind.Price != -20 {
		t.Errorf("wind bid price %v, want -20", wind.Price)
	}
	if wind.Zone != model.ZoneSouth {
		t.Errorf("wind bid zone %v, want South", wind.Zone)
	}

	solar, _ := book.Get(4)
	if solar.AmountMW != 0 {
		t.Errorf("solar with zero ceiling bid %v MW, want 0", solar.AmountMW)
	}
}

func TestThermalPolicyMarkupBounded(t *testing.T) {
	role := testRoles[0] // baseload, cost 15 -> markup in [0, 3]
	for seed := int64(0); seed < 50; seed++ {
		book := NewBook()
		if err := newAutoBidder(seed).Fill(book, []model.Role{role}, nil); err != nil {
			t.Fatalf("fill: %v", err)
		}
		bid, _ := book.Get(role.ID)
		if bid.AmountMW != role.CapacityMW {
			t.Fatalf("thermal bid amount %v, want full capacity %v", bid.AmountMW, role.CapacityMW)
		}
		markup := bid.Price - role.MarginalCost
		if markup < 0 || markup > 0.2*role.MarginalCost {
			t.Fatalf("seed %d: markup %v outside [0, %v]", seed, markup, 0.2*role.MarginalCost)
		}
	}
}

func TestZeroCostThermalBidsAtCost(t *testing.T) {
	role := model.Role{ID: 9, Fuel: model.FuelPeaking, Zone: model.ZoneSouth, CapacityMW: 50, MarginalCost: 0}
	book := NewBook()
	if err := newAutoBidder(3).Fill(book, []model.Role{role}, nil); err != nil {
		t.Fatalf("fill: %v", err)
	}
	bid, _ := book.Get(9)
	if bid.Price != 0 {
		t.Errorf("zero-cost unit bid %v, want 0", bid.Price)
	}
}

func TestPolicyParamsAreConfigurable(t *testing.T) {
	policies := DefaultPolicies(PolicyParams{RenewableOffset: 5, ThermalMarkupFrac: 0})
	auto := NewAutoBidder(policies, rand.New(rand.NewSource(1)))

	book := NewBook()
	if err := auto.Fill(book, testRoles, map[int]float64{2: 100, 4: 100}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	wind, _ := book.Get(2)
	if wind.Price != -25 {
		t.Errorf("wind price %v, want 5 - 30 = -25", wind.Price)
	}
	thermal, _ := book.Get(3)
	if thermal.Price != 60 {
		t.Errorf("thermal price %v, want exactly cost with zero markup", thermal.Price)
	}
}
