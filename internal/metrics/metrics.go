// Package metrics records pipeline measurements with OpenCensus and exposes
// them in the Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const namespace = "bandsense"

var (
	KeyResult = tag.MustNewKey("result")
	KeyMode   = tag.MustNewKey("mode")
	KeyTarget = tag.MustNewKey("target")
)

var (
	MWindows     = stats.Int64("pipeline/windows", "Windows processed by the pipeline", stats.UnitDimensionless)
	MPassLatency = stats.Float64("pipeline/pass_latency", "Duration of one pipeline pass", stats.UnitMilliseconds)
	MExamples    = stats.Int64("pipeline/examples", "Training examples collected", stats.UnitDimensionless)
	MPredictions = stats.Int64("pipeline/predictions", "Predictions emitted", stats.UnitDimensionless)
	MSamples     = stats.Int64("ingest/samples", "Samples received from transports", stats.UnitDimensionless)
	MPublished   = stats.Int64("publish/predictions", "Predictions delivered to targets", stats.UnitDimensionless)
	MFitScore    = stats.Float64("classifier/cv_score", "Last cross-validation score", stats.UnitDimensionless)
)

var Views = []*view.View{
	{
		Name:        "pipeline/windows_total",
		Measure:     MWindows,
		Description: MWindows.Description(),
		TagKeys:     []tag.Key{KeyResult, KeyMode},
		Aggregation: view.Count(),
	},
	{
		Name:        "pipeline/pass_latency_ms",
		Measure:     MPassLatency,
		Description: MPassLatency.Description(),
		TagKeys:     []tag.Key{KeyMode},
		Aggregation: view.Distribution(0.1, 0.5, 1, 2, 5, 10, 25, 50, 100),
	},
	{
		Name:        "pipeline/examples_total",
		Measure:     MExamples,
		Description: MExamples.Description(),
		Aggregation: view.Count(),
	},
	{
		Name:        "pipeline/predictions_total",
		Measure:     MPredictions,
		Description: MPredictions.Description(),
		Aggregation: view.Count(),
	},
	{
		Name:        "ingest/samples_total",
		Measure:     MSamples,
		Description: MSamples.Description(),
		Aggregation: view.Sum(),
	},
	{
		Name:        "publish/predictions_total",
		Measure:     MPublished,
		Description: MPublished.Description(),
		TagKeys:     []tag.Key{KeyTarget},
		Aggregation: view.Sum(),
	},
	{
		Name:        "classifier/cv_score",
		Measure:     MFitScore,
		Description: MFitScore.Description(),
		Aggregation: view.LastValue(),
	},
}

var registerOnce sync.Once

// Register registers the views once per process.
func Register() error {
	var err error
	registerOnce.Do(func() {
		err = view.Register(Views...)
	})
	if err != nil {
		return fmt.Errorf("metrics: register views: %w", err)
	}
	return nil
}

// NewHandler registers the views and returns the Prometheus scrape handler.
func NewHandler() (http.Handler, error) {
	if err := Register(); err != nil {
		return nil, err
	}
	exporter, err := ocprom.NewExporter(ocprom.Options{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("metrics: create prometheus exporter: %w", err)
	}
	return exporter, nil
}

// RecordPass records the outcome and latency of one pipeline pass.
func RecordPass(ctx context.Context, mode, result string, took time.Duration) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyMode, mode), tag.Upsert(KeyResult, result)},
		MWindows.M(1),
		MPassLatency.M(float64(took)/float64(time.Millisecond)),
	)
}

func RecordExample(ctx context.Context) {
	stats.Record(ctx, MExamples.M(1))
}

func RecordPrediction(ctx context.Context) {
	stats.Record(ctx, MPredictions.M(1))
}

func RecordSamples(ctx context.Context, n int) {
	stats.Record(ctx, MSamples.M(int64(n)))
}

func RecordPublished(ctx context.Context, target string, n int) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyTarget, target)}, MPublished.M(int64(n)))
}

func RecordScore(ctx context.Context, score float64) {
	stats.Record(ctx, MFitScore.M(score))
}
