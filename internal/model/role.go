package model

import (
	"fmt"
	"strings"
)

// FuelType is the generator category a role belongs to. Bid and settlement
// policy are selected by fuel type, so components switch on this tag rather
// than sniffing individual role fields.
type FuelType string

const (
	FuelBaseload FuelType = "baseload"
	FuelPeaking  FuelType = "peaking"
	FuelWind     FuelType = "wind"
	FuelSolar    FuelType = "solar"
)

// Renewable reports whether the fuel type earns the tax credit and bids
// against a stochastic generation ceiling instead of firm capacity.
func (f FuelType) Renewable() bool {
	return f == FuelWind || f == FuelSolar
}

func ParseFuelType(s string) (FuelType, error) {
	switch FuelType(strings.ToLower(strings.TrimSpace(s))) {
	case FuelBaseload:
		return FuelBaseload, nil
	case FuelPeaking:
		return FuelPeaking, nil
	case FuelWind:
		return FuelWind, nil
	case FuelSolar:
		return FuelSolar, nil
	}
	return "", fmt.Errorf("unknown fuel type %q", s)
}

// Zone is a load-balancing area. The market models exactly two zones joined
// by a single transmission link.
type Zone int

const (
	ZoneSouth Zone = iota
	ZoneNorth

	NumZones = 2
)

func (z Zone) String() string {
	switch z {
	case ZoneSouth:
		return "South"
	case ZoneNorth:
		return "North"
	}
	return fmt.Sprintf("Zone(%d)", int(z))
}

func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "south":
		return ZoneSouth, nil
	case "north":
		return ZoneNorth, nil
	}
	return 0, fmt.Errorf("unknown zone %q", s)
}

// Role is the immutable per-game configuration of one generator seat.
// Units:
// - CapacityMW: firm capacity, MW (thermal roles)
// - NameplateMW: maximum possible generation, MW (renewable roles)
// - MarginalCost: $/MWh
// - IdlePenalty: $ per period, charged to baseload roles dispatched at 0 MW
// - TaxCredit: $/MWh earned on dispatched renewable generation
type Role struct {
	ID           int
	Fuel         FuelType
	Zone         Zone
	CapacityMW   float64
	NameplateMW  float64
	MarginalCost float64
	IdlePenalty  float64
	TaxCredit    float64
	Description  string
}

func (r Role) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("role id must be positive, got %d", r.ID)
	}
	if _, err := ParseFuelType(string(r.Fuel)); err != nil {
		return fmt.Errorf("role %d: %w", r.ID, err)
	}
	if r.Zone != ZoneSouth && r.Zone != ZoneNorth {
		return fmt.Errorf("role %d: invalid zone %d", r.ID, int(r.Zone))
	}
	if r.Fuel.Renewable() {
		if r.NameplateMW <= 0 {
			return fmt.Errorf("role %d: nameplate_mw must be > 0 for %s", r.ID, r.Fuel)
		}
	} else {
		if r.CapacityMW <= 0 {
			return fmt.Errorf("role %d: capacity_mw must be > 0 for %s", r.ID, r.Fuel)
		}
	}
	if r.MarginalCost < 0 {
		return fmt.Errorf("role %d: marginal_cost must be >= 0", r.ID)
	}
	if r.IdlePenalty < 0 {
		return fmt.Errorf("role %d: idle_penalty must be >= 0", r.ID)
	}
	if r.TaxCredit < 0 {
		return fmt.Errorf("role %d: tax_credit must be >= 0", r.ID)
	}
	return nil
}
