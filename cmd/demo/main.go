package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"grid-market-sim/internal/config"
	"grid-market-sim/internal/game"
	"grid-market-sim/internal/history"
	"grid-market-sim/internal/model"
)

// Demo:
// - Build the reference game (or a YAML config)
// - Join the scripted participants and submit a few manual bids
// - Clear all periods of both rounds, printing the settlement tables
func main() {
	cfgPath := flag.String("config", "", "Path to game YAML config (optional)")
	seed := flag.Int64("seed", 1, "Seed for auto-bid markups and forecast noise")
	outDir := flag.String("out", "", "Optional directory for settlement CSVs")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	var sinks []history.Sink
	if *outDir != "" {
		csvSink, err := history.NewCSVSink(*outDir)
		if err != nil {
			log.Fatalf("out dir: %v", err)
		}
		sinks = append(sinks, csvSink)
	}

	g, err := game.New(cfg, game.Options{
		Rand:  rand.New(rand.NewSource(*seed)),
		Sinks: sinks,
	})
	if err != nil {
		log.Fatalf("init game: %v", err)
	}

	// Two human players; the rest of the seats auto-bid.
	for _, p := range []int{1, 2} {
		role, err := g.Join(p)
		if err != nil {
			log.Fatalf("join %d: %v", p, err)
		}
		fmt.Printf("participant %d plays role %d (%s, %s)\n", p, role.ID, role.Fuel, role.Zone)
	}

	ctx := context.Background()
	for round := 1; round <= 2; round++ {
		for period := 1; period <= cfg.Market.Periods; period++ {
			// Participant 1 bids a little over cost; participant 2 bids zero.
			if err := g.SubmitBid(1, 25); err != nil {
				log.Fatalf("bid: %v", err)
			}
			if err := g.SubmitBid(2, 0); err != nil {
				log.Fatalf("bid: %v", err)
			}

			res, err := g.ClearMarket(ctx)
			if err != nil {
				log.Fatalf("clear round %d period %d: %v", round, period, err)
			}
			printPeriod(g, res)
		}
		if round == 1 {
			if err := g.AdvanceRound(); err != nil {
				log.Fatalf("advance round: %v", err)
			}
			fmt.Println("\n=== round 2: transmission limit lifted, roles rotated ===")
		}
	}
}

func printPeriod(g *game.Game, res *game.PeriodResult) {
	d := res.Dispatch
	fmt.Printf("\nround %d period %d  LMP South %.2f  North %.2f  transfer %.1f MW\n",
		res.Round, res.Period, d.Prices[model.ZoneSouth], d.Prices[model.ZoneNorth], d.TransferMW)
	fmt.Printf("%-4s %-9s %-6s %10s %10s %10s %12s %12s\n",
		"role", "fuel", "zone", "bid MW", "bid $", "disp MW", "cum rev $", "cum prof $")
	for _, bid := range res.Bids {
		role := roleByID(g, bid.RoleID)
		entry, _ := g.LedgerEntry(bid.RoleID, res.Period)
		auto := " "
		if bid.Auto {
			auto = "*"
		}
		fmt.Printf("%-4d %-9s %-6s %10.1f %10.1f %10.1f %12.0f %12.0f %s\n",
			bid.RoleID, role.Fuel, role.Zone, bid.AmountMW, bid.Price,
			d.Accepted(bid.RoleID), entry.CumRevenue, entry.CumProfit, auto)
	}
}

func roleByID(g *game.Game, id int) model.Role {
	for _, r := range g.Roles() {
		if r.ID == id {
			return r
		}
	}
	return model.Role{}
}
