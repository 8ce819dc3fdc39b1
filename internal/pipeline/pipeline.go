// Package pipeline orchestrates the four analysis stages: place resolution,
// climate lookup, narrative generation, and report assembly.
//
// Stage failures have two severities. Place resolution and narrative
// generation abort the run; the climate lookup degrades to an unknown
// humidity reading and the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/envirolab/infrascan/internal/domain"
	"github.com/envirolab/infrascan/internal/observability"
)

// ErrNoInfrastructure aborts the run when place resolution fails.
var ErrNoInfrastructure = errors.New("could not find any nearby infrastructure")

// ErrAnalysisFailed aborts the run when narrative generation fails.
var ErrAnalysisFailed = errors.New("failed to generate analysis")

// PlaceFinder resolves the nearest infrastructure to a coordinate.
type PlaceFinder interface {
	FindNearest(ctx context.Context, coord domain.Coordinate) (domain.Place, error)
}

// HumidityProvider returns the current relative humidity for a coordinate.
type HumidityProvider interface {
	CurrentHumidity(ctx context.Context, coord domain.Coordinate) (int, error)
}

// AnalysisGenerator produces the structured narrative for a resolved place.
type AnalysisGenerator interface {
	GenerateAnalysis(ctx context.Context, place domain.Place, humidity domain.HumidityReading) (domain.AnalysisResult, error)
}

// ReportPublisher delivers the finished report to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, runID string, report domain.Report) error
}

// Pipeline runs one analysis from coordinate to report.
type Pipeline struct {
	runID     string
	finder    PlaceFinder
	weather   HumidityProvider
	generator AnalysisGenerator
	publisher ReportPublisher // nil when publishing is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. publisher may be nil.
func New(runID string, finder PlaceFinder, weather HumidityProvider, generator AnalysisGenerator, publisher ReportPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		runID:     runID,
		finder:    finder,
		weather:   weather,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes the stages in order and returns the assembled report.
func (p *Pipeline) Run(ctx context.Context, coord domain.Coordinate) (domain.Report, error) {
	p.logger.Info("searching for nearest infrastructure", "lat", coord.Lat, "lon", coord.Lon)
	place, err := p.finder.FindNearest(ctx, coord)
	if err != nil {
		p.metrics.Runs.WithLabelValues("no_place").Inc()
		return domain.Report{}, fmt.Errorf("%w: %v", ErrNoInfrastructure, err)
	}
	p.logger.Info("found nearest place", "name", place.Name, "type", place.Category)

	p.logger.Info("fetching current climate data")
	humidity := p.lookupHumidity(ctx, coord)

	p.logger.Info("generating analysis", "humidity", humidity.String())
	analysis, err := p.generator.GenerateAnalysis(ctx, place, humidity)
	if err != nil {
		p.metrics.Runs.WithLabelValues("analysis_failed").Inc()
		return domain.Report{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	report := domain.AssembleReport(place, analysis)
	p.publish(ctx, report)

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.logger.Info("analysis complete", "name", report.Name, "type", report.Type, "is_critical", report.IsCritical)
	return report, nil
}

// lookupHumidity degrades gracefully: humidity is context for the narrative,
// never a hard dependency.
func (p *Pipeline) lookupHumidity(ctx context.Context, coord domain.Coordinate) domain.HumidityReading {
	pct, err := p.weather.CurrentHumidity(ctx, coord)
	if err != nil {
		p.logger.Warn("could not retrieve humidity, proceeding without it", "error", err)
		p.metrics.HumidityDegraded.Inc()
		return domain.HumidityReading{}
	}
	return domain.HumidityReading{Percent: pct, Known: true}
}

func (p *Pipeline) publish(ctx context.Context, report domain.Report) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, p.runID, report); err != nil {
		p.logger.Warn("report publish failed", "error", err)
		p.metrics.ReportsPublished.WithLabelValues("error").Inc()
		return
	}
	p.metrics.ReportsPublished.WithLabelValues("success").Inc()
}
