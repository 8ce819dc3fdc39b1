// Command infrascan locates the nearest piece of civic infrastructure to a
// coordinate, enriches it with the current humidity, and prints an
// AI-generated analysis report as JSON.
//
// Usage:
//
//	infrascan <latitude> <longitude>
//
// Requires GOOGLE_MAPS_API_KEY and GEMINI_API_KEY in the environment.
// Diagnostics go to stderr; stdout carries only the final report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/envirolab/infrascan/internal/adapter/gemini"
	"github.com/envirolab/infrascan/internal/adapter/kafka"
	"github.com/envirolab/infrascan/internal/adapter/openmeteo"
	"github.com/envirolab/infrascan/internal/adapter/places"
	"github.com/envirolab/infrascan/internal/config"
	"github.com/envirolab/infrascan/internal/domain"
	"github.com/envirolab/infrascan/internal/observability"
	"github.com/envirolab/infrascan/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 2 {
		usage()
		return 2
	}

	coord, err := parseCoordinate(flag.Arg(0), flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "infrascan: %v\n", err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(cfg).With("run_id", runID)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	finder := places.NewClient(cfg.GoogleMapsAPIKey, cfg.PlacesTimeout, cfg.RetryBackoff, clock, logger, metrics)
	weather := openmeteo.NewClient(cfg.WeatherTimeout, cfg.RetryBackoff, clock, logger, metrics)
	generator := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, cfg.RetryBackoff, clock, logger, metrics)

	var publisher pipeline.ReportPublisher
	if cfg.ReportPublishingEnabled() {
		writer := kafka.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warn("kafka writer close failed", "error", err)
			}
		}()
		publisher = writer
		logger.Info("report publishing enabled", "topic", cfg.KafkaTopic)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(runID, finder, weather, generator, publisher, logger, metrics)
	report, runErr := p.Run(ctx, coord)

	if cfg.MetricsPushURL != "" {
		if err := metrics.Push(cfg.MetricsPushURL, cfg.MetricsJobName); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run aborted", "error", runErr)
		return 1
	}

	out, err := report.Render()
	if err != nil {
		logger.Error("render report failed", "error", err)
		return 1
	}
	fmt.Println(out)
	return 0
}

func parseCoordinate(latArg, lonArg string) (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid latitude %q", latArg)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid longitude %q", lonArg)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: infrascan <latitude> <longitude>

Finds the nearest civic infrastructure to the coordinate and prints an
AI-generated analysis report as JSON.

Example:
  infrascan 35.9132 -79.0558

Environment:
  GOOGLE_MAPS_API_KEY   Places API credential (required)
  GEMINI_API_KEY        Gemini API credential (required)
`)
}
