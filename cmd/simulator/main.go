package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"blogging-web/internal/utils"
	"blogging-web/simulator"
)

func main() {
	config := simulator.DefaultSimConfig()

	flag.StringVar(&config.EngineURL, "url", envOr("SIM_ENGINE_URL", config.EngineURL), "base URL of the blog server")
	flag.IntVar(&config.NumUsers, "users", config.NumUsers, "number of simulated users")
	flag.DurationVar(&config.SimulationTime, "duration", config.SimulationTime, "how long to run")
	flag.Float64Var(&config.PostFrequency, "posts", config.PostFrequency, "posts per user per hour")
	flag.Float64Var(&config.CommentFrequency, "comments", config.CommentFrequency, "comments per user per hour")
	flag.Float64Var(&config.LikeFrequency, "likes", config.LikeFrequency, "like toggles per user per hour")
	flag.Float64Var(&config.ZipfS, "zipf", config.ZipfS, "Zipf skew for post popularity (> 1)")
	debug := flag.Bool("debug", false, "log failed requests")
	flag.Parse()

	logger := utils.NewLogger(os.Stdout, false, *debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.SimulationTime)
	defer cancel()

	sim := simulator.NewSimulator(config, logger)
	if err := sim.Run(ctx); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	m := sim.GetMetrics()
	logger.Info("simulation completed",
		"users", m.TotalUsers,
		"active_users", m.ActiveUsers,
		"requests", m.TotalRequests,
		"failed", m.FailedRequests,
		"avg_latency", m.AverageLatency,
		"posts", m.TotalPosts,
		"comments", m.TotalComments,
		"likes", m.TotalLikes,
		"unlikes", m.TotalUnlikes,
		"live_events", m.LiveEvents)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
