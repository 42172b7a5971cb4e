package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"grid-market-sim/internal/model"
)

// Config is the on-disk configuration shape (YAML). It carries everything
// fixed for one game: the generator roster, the participant-to-role rotation,
// load and renewable forecasts, and the bidding-policy knobs.
type Config struct {
	Market      MarketConfig       `yaml:"market"`
	Policy      PolicyConfig       `yaml:"policy"`
	Roles       []RoleConfig       `yaml:"roles"`
	Assignments []AssignmentConfig `yaml:"assignments"`
	Server      ServerConfig       `yaml:"server"`
}

type MarketConfig struct {
	// Periods per round. The reference game plays 4.
	Periods int `yaml:"periods"`

	// Per-period zonal load forecast (MW), known for the whole game.
	LoadsSouth []float64 `yaml:"loads_south"`
	LoadsNorth []float64 `yaml:"loads_north"`

	// Per-period renewable availability factors in [0, ~1].
	WindProfile  []float64 `yaml:"wind_profile"`
	SolarProfile []float64 `yaml:"solar_profile"`

	// Transmission limit (MW) on the South-North link, one entry per round.
	TransmissionLimits []float64 `yaml:"transmission_limits"`
}

type PolicyConfig struct {
	RenewableOffset float64 `yaml:"renewable_offset"`
	ThermalMarkup   float64 `yaml:"thermal_markup"`

	// ForecastSigma is the standard deviation of the multiplicative noise
	// (mean 1.0) applied to renewable ceilings at each period transition.
	ForecastSigma float64 `yaml:"forecast_sigma"`
}

type RoleConfig struct {
	ID           int     `yaml:"id"`
	Fuel         string  `yaml:"fuel"`
	Zone         string  `yaml:"zone"`
	CapacityMW   float64 `yaml:"capacity_mw"`
	NameplateMW  float64 `yaml:"nameplate_mw"`
	MarginalCost float64 `yaml:"marginal_cost"`
	IdlePenalty  float64 `yaml:"idle_penalty"`
	TaxCredit    float64 `yaml:"tax_credit"`
	Description  string  `yaml:"description"`
}

// AssignmentConfig rotates one participant through different roles across
// rounds, so everyone plays more than one generator type.
type AssignmentConfig struct {
	Participant int `yaml:"participant"`
	Round1      int `yaml:"round1"`
	Round2      int `yaml:"round2"`
}

type ServerConfig struct {
	// OperatorKey gates the market-clearing endpoints. Empty disables the
	// check (local classroom use).
	OperatorKey string `yaml:"operator_key"`
}

// Load reads a YAML config, fills unset policy knobs with defaults, and
// validates. A missing or malformed file is fatal to startup.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Market.Periods == 0 {
		c.Market.Periods = 4
	}
	if c.Policy.RenewableOffset == 0 {
		c.Policy.RenewableOffset = 10
	}
	if c.Policy.ThermalMarkup == 0 {
		c.Policy.ThermalMarkup = 0.2
	}
	if c.Policy.ForecastSigma == 0 {
		c.Policy.ForecastSigma = 0.1
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	m := c.Market
	if m.Periods <= 0 {
		return errors.New("market.periods must be > 0")
	}
	for name, series := range map[string][]float64{
		"loads_south":   m.LoadsSouth,
		"loads_north":   m.LoadsNorth,
		"wind_profile":  m.WindProfile,
		"solar_profile": m.SolarProfile,
	} {
		if len(series) != m.Periods {
			return fmt.Errorf("market.%s must have %d entries, got %d", name, m.Periods, len(series))
		}
	}
	if len(m.TransmissionLimits) != 2 {
		return fmt.Errorf("market.transmission_limits must have one entry per round (2), got %d", len(m.TransmissionLimits))
	}
	for r, lim := range m.TransmissionLimits {
		if lim < 0 {
			return fmt.Errorf("market.transmission_limits[%d] must be >= 0", r)
		}
	}

	if len(c.Roles) == 0 {
		return errors.New("at least one role is required")
	}
	seen := make(map[int]bool, len(c.Roles))
	for _, rc := range c.Roles {
		role, err := rc.ToModel()
		if err != nil {
			return err
		}
		if seen[role.ID] {
			return fmt.Errorf("duplicate role id %d", role.ID)
		}
		seen[role.ID] = true
	}

	return c.validateAssignments(seen)
}

// validateAssignments checks the rotation table: every referenced role must
// exist and no role may be taken by two participants in the same round.
func (c *Config) validateAssignments(roles map[int]bool) error {
	taken1 := make(map[int]int)
	taken2 := make(map[int]int)
	seenP := make(map[int]bool)
	for _, a := range c.Assignments {
		if a.Participant <= 0 {
			return fmt.Errorf("assignment participant id must be positive, got %d", a.Participant)
		}
		if seenP[a.Participant] {
			return fmt.Errorf("duplicate assignment for participant %d", a.Participant)
		}
		seenP[a.Participant] = true
		for round, roleID := range map[int]int{1: a.Round1, 2: a.Round2} {
			if !roles[roleID] {
				return fmt.Errorf("participant %d round %d references unknown role %d", a.Participant, round, roleID)
			}
		}
		if p, ok := taken1[a.Round1]; ok {
			return fmt.Errorf("round 1 role %d assigned to both participants %d and %d", a.Round1, p, a.Participant)
		}
		if p, ok := taken2[a.Round2]; ok {
			return fmt.Errorf("round 2 role %d assigned to both participants %d and %d", a.Round2, p, a.Participant)
		}
		taken1[a.Round1] = a.Participant
		taken2[a.Round2] = a.Participant
	}
	return nil
}

func (rc RoleConfig) ToModel() (model.Role, error) {
	fuel, err := model.ParseFuelType(rc.Fuel)
	if err != nil {
		return model.Role{}, fmt.Errorf("role %d: %w", rc.ID, err)
	}
	zone, err := model.ParseZone(rc.Zone)
	if err != nil {
		return model.Role{}, fmt.Errorf("role %d: %w", rc.ID, err)
	}
	role := model.Role{
		ID:           rc.ID,
		Fuel:         fuel,
		Zone:         zone,
		CapacityMW:   rc.CapacityMW,
		NameplateMW:  rc.NameplateMW,
		MarginalCost: rc.MarginalCost,
		IdlePenalty:  rc.IdlePenalty,
		TaxCredit:    rc.TaxCredit,
		Description:  rc.Description,
	}
	if err := role.Validate(); err != nil {
		return model.Role{}, err
	}
	return role, nil
}

// ModelRoles converts the roster, assuming a validated config.
func (c *Config) ModelRoles() []model.Role {
	out := make([]model.Role, 0, len(c.Roles))
	for _, rc := range c.Roles {
		role, err := rc.ToModel()
		if err != nil {
			continue
		}
		out = append(out, role)
	}
	return out
}

// RoleForRound resolves a participant's role ID in the given round, using the
// fixed rotation table.
func (c *Config) RoleForRound(participant, round int) (int, bool) {
	for _, a := range c.Assignments {
		if a.Participant != participant {
			continue
		}
		switch round {
		case 1:
			return a.Round1, true
		case 2:
			return a.Round2, true
		}
		return 0, false
	}
	return 0, false
}
