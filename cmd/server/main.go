package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"grid-market-sim/internal/api"
	"grid-market-sim/internal/config"
	"grid-market-sim/internal/game"
	"grid-market-sim/internal/history"
	"grid-market-sim/internal/ws"
)

func main() {
	cfgPath := flag.String("config", "", "Path to game YAML config (default: built-in reference game)")
	historyDir := flag.String("history", "", "Optional directory for per-period settlement CSVs")
	flag.Parse()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config %s: %v", *cfgPath, err)
		}
		cfg = loaded
		log.Printf("Loaded game config from %s", *cfgPath)
	}

	records := history.NewMemorySink()
	sinks := []history.Sink{records}
	if *historyDir != "" {
		csvSink, err := history.NewCSVSink(*historyDir)
		if err != nil {
			log.Fatalf("history dir %s: %v", *historyDir, err)
		}
		sinks = append(sinks, csvSink)
		log.Printf("Writing settlement CSVs to %s", *historyDir)
	}

	g, err := game.New(cfg, game.Options{Sinks: sinks})
	if err != nil {
		log.Fatalf("init game: %v", err)
	}

	operatorKey := os.Getenv("OPERATOR_KEY")
	if operatorKey == "" {
		operatorKey = cfg.Server.OperatorKey
	}

	hub := ws.NewHub()
	server := api.NewServer(g, hub, records, operatorKey)
	go server.Watch(context.Background())

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}).Handler(server.Router())

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting market server on %s (%d roles, %d periods/round)", addr, len(cfg.Roles), cfg.Market.Periods)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
