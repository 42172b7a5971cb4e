package config

// Default returns the reference classroom game: six generator seats across
// two zones, four periods per round, a tight transmission limit in round 1
// that is effectively removed in round 2.
func Default() *Config {
	c := &Config{
		Market: MarketConfig{
			Periods:            4,
			LoadsSouth:         []float64{400, 600, 760, 550},
			LoadsNorth:         []float64{50, 60, 70, 40},
			WindProfile:        []float64{0.7, 0.3, 0.3, 0.6},
			SolarProfile:       []float64{0, 0.9, 0.8, 0},
			TransmissionLimits: []float64{200, 5000},
		},
		Roles: []RoleConfig{
			{
				ID: 1, Fuel: "baseload", Zone: "south",
				CapacityMW: 500, MarginalCost: 15, IdlePenalty: 2000,
				Description: "Large base-load plant: big capacity, low marginal cost, penalized when not dispatched.",
			},
			{
				ID: 2, Fuel: "wind", Zone: "south",
				NameplateMW: 300, MarginalCost: 2, TaxCredit: 30,
				Description: "Wind farm: weather-dependent output, near-zero cost, earns the production tax credit.",
			},
			{
				ID: 3, Fuel: "peaking", Zone: "south",
				CapacityMW: 200, MarginalCost: 80,
				Description: "Gas peaker: fast-ramping, high cost, profits from scarcity periods.",
			},
			{
				ID: 4, Fuel: "solar", Zone: "north",
				NameplateMW: 150, MarginalCost: 1, TaxCredit: 30,
				Description: "Solar plant: daytime-only output, near-zero cost, earns the production tax credit.",
			},
			{
				ID: 5, Fuel: "peaking", Zone: "north",
				CapacityMW: 100, MarginalCost: 60,
				Description: "Diesel peaker serving the smaller northern zone.",
			},
			{
				ID: 6, Fuel: "wind", Zone: "north",
				NameplateMW: 100, MarginalCost: 2, TaxCredit: 30,
				Description: "Small northern wind farm.",
			},
		},
		Assignments: []AssignmentConfig{
			{Participant: 1, Round1: 1, Round2: 2},
			{Participant: 2, Round1: 2, Round2: 4},
			{Participant: 3, Round1: 3, Round2: 1},
			{Participant: 4, Round1: 4, Round2: 3},
			{Participant: 5, Round1: 5, Round2: 6},
		},
	}
	c.applyDefaults()
	return c
}
