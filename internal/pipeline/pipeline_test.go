package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envirolab/infrascan/internal/domain"
	"github.com/envirolab/infrascan/internal/observability"
	"github.com/envirolab/infrascan/internal/pipeline"
)

// --- mocks ---

type mockFinder struct {
	place domain.Place
	err   error
	calls int
}

func (m *mockFinder) FindNearest(_ context.Context, _ domain.Coordinate) (domain.Place, error) {
	m.calls++
	return m.place, m.err
}

type mockWeather struct {
	humidity int
	err      error
	calls    int
}

func (m *mockWeather) CurrentHumidity(_ context.Context, _ domain.Coordinate) (int, error) {
	m.calls++
	return m.humidity, m.err
}

type mockGenerator struct {
	analysis domain.AnalysisResult
	err      error
	calls    int
	gotPlace domain.Place
	gotHum   domain.HumidityReading
}

func (m *mockGenerator) GenerateAnalysis(_ context.Context, place domain.Place, humidity domain.HumidityReading) (domain.AnalysisResult, error) {
	m.calls++
	m.gotPlace = place
	m.gotHum = humidity
	return m.analysis, m.err
}

type mockPublisher struct {
	err       error
	published []domain.Report
	runIDs    []string
}

func (m *mockPublisher) Publish(_ context.Context, runID string, report domain.Report) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, report)
	m.runIDs = append(m.runIDs, runID)
	return nil
}

// --- fixtures ---

var (
	testCoord = domain.Coordinate{Lat: 35.9132, Lon: -79.0558}
	testPlace = domain.Place{
		Name:          "UNC Hospital",
		Category:      "Hospital",
		RawCategories: []string{"hospital", "health"},
	}
	testAnalysis = domain.AnalysisResult{
		Summary:         "A regional medical center.",
		ResourcesUsed:   []string{"electricity", "water"},
		ImpactReduction: []string{"solar panels", "water recycling"},
		IsCritical:      true,
	}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(f *mockFinder, w *mockWeather, g *mockGenerator, pub pipeline.ReportPublisher, m *observability.Metrics) *pipeline.Pipeline {
	return pipeline.New("run-1", f, w, g, pub, testLogger(), m)
}

// --- tests ---

func TestRun_HappyPath(t *testing.T) {
	finder := &mockFinder{place: testPlace}
	weather := &mockWeather{humidity: 62}
	generator := &mockGenerator{analysis: testAnalysis}
	metrics := observability.NewMetrics()

	p := newPipeline(finder, weather, generator, nil, metrics)
	report, err := p.Run(context.Background(), testCoord)
	require.NoError(t, err)

	want := domain.Report{
		Name:            "UNC Hospital",
		Type:            "Hospital",
		Summary:         "A regional medical center.",
		ResourcesUsed:   []string{"electricity", "water"},
		ImpactReduction: []string{"solar panels", "water recycling"},
		IsCritical:      true,
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, domain.HumidityReading{Percent: 62, Known: true}, generator.gotHum)
	assert.Equal(t, testPlace, generator.gotPlace)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("success")))
}

func TestRun_PlaceResolutionFailureAborts(t *testing.T) {
	finder := &mockFinder{err: errors.New("ZERO_RESULTS")}
	weather := &mockWeather{humidity: 62}
	generator := &mockGenerator{analysis: testAnalysis}
	metrics := observability.NewMetrics()

	p := newPipeline(finder, weather, generator, nil, metrics)
	_, err := p.Run(context.Background(), testCoord)

	require.ErrorIs(t, err, pipeline.ErrNoInfrastructure)
	// Abort terminal: no later stage runs.
	assert.Zero(t, weather.calls)
	assert.Zero(t, generator.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("no_place")))
}

func TestRun_HumidityFailureDegrades(t *testing.T) {
	finder := &mockFinder{place: testPlace}
	weather := &mockWeather{err: errors.New("upstream timeout")}
	generator := &mockGenerator{analysis: testAnalysis}
	metrics := observability.NewMetrics()

	p := newPipeline(finder, weather, generator, nil, metrics)
	report, err := p.Run(context.Background(), testCoord)
	require.NoError(t, err)

	// The run still reaches generation, with an unknown reading.
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, domain.HumidityReading{}, generator.gotHum)
	assert.Equal(t, "not available", generator.gotHum.String())
	assert.Equal(t, "UNC Hospital", report.Name)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HumidityDegraded))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("success")))
}

func TestRun_GenerationFailureAborts(t *testing.T) {
	finder := &mockFinder{place: testPlace}
	weather := &mockWeather{humidity: 62}
	generator := &mockGenerator{err: errors.New("quota exceeded")}
	metrics := observability.NewMetrics()

	pub := &mockPublisher{}
	p := newPipeline(finder, weather, generator, pub, metrics)
	_, err := p.Run(context.Background(), testCoord)

	require.ErrorIs(t, err, pipeline.ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, pub.published, "aborted runs must not publish")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("analysis_failed")))
}

func TestRun_PublishesReport(t *testing.T) {
	finder := &mockFinder{place: testPlace}
	weather := &mockWeather{humidity: 62}
	generator := &mockGenerator{analysis: testAnalysis}
	metrics := observability.NewMetrics()
	pub := &mockPublisher{}

	p := newPipeline(finder, weather, generator, pub, metrics)
	report, err := p.Run(context.Background(), testCoord)
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, report, pub.published[0])
	assert.Equal(t, []string{"run-1"}, pub.runIDs)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReportsPublished.WithLabelValues("success")))
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	finder := &mockFinder{place: testPlace}
	weather := &mockWeather{humidity: 62}
	generator := &mockGenerator{analysis: testAnalysis}
	metrics := observability.NewMetrics()
	pub := &mockPublisher{err: errors.New("broker unreachable")}

	p := newPipeline(finder, weather, generator, pub, metrics)
	report, err := p.Run(context.Background(), testCoord)

	require.NoError(t, err)
	assert.Equal(t, "UNC Hospital", report.Name)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReportsPublished.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("success")))
}
