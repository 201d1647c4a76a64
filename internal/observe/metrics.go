// SPDX-License-Identifier: EPL-2.0

// Package observe holds the OpenTelemetry instruments of the mixing engine
// and the provider setup that exposes them to Prometheus.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope of every audmix instrument.
const meterName = "github.com/ik5/audmix"

// Metrics holds the engine's instruments. Safe for concurrent use; never
// touched from the mixer goroutine.
type Metrics struct {
	// DecodeDuration is the time a pipeline task spends producing one chunk.
	DecodeDuration metric.Float64Histogram

	// Ticks counts rendered device periods.
	Ticks metric.Int64Counter

	// Underruns counts periods where a playing voice had fewer frames than
	// requested.
	Underruns metric.Int64Counter

	// QueueFull counts commands rejected because the channel was full.
	QueueFull metric.Int64Counter

	// CommandsRejected counts commands the mixer dropped. Use with
	// attribute.String("reason", ...).
	CommandsRejected metric.Int64Counter

	VoicesStarted  metric.Int64Counter
	VoicesFinished metric.Int64Counter
	VoicesFailed   metric.Int64Counter

	// RecordDropped counts frames the recorder could not keep up with.
	RecordDropped metric.Int64Counter

	// ActiveVoices tracks voices currently in the registry.
	ActiveVoices metric.Int64UpDownCounter
}

// decodeBuckets are in seconds; a chunk should decode well under a period.
var decodeBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DecodeDuration, err = m.Float64Histogram("audmix.decode.duration",
		metric.WithDescription("Time spent decoding and resampling one chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(decodeBuckets...),
	); err != nil {
		return nil, err
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.Ticks, "audmix.mixer.ticks", "Device periods rendered."},
		{&met.Underruns, "audmix.mixer.underruns", "Periods where a playing voice ran short of data."},
		{&met.QueueFull, "audmix.commands.queue_full", "Commands rejected at submission because the queue was full."},
		{&met.CommandsRejected, "audmix.commands.rejected", "Commands dropped by the mixer by reason."},
		{&met.VoicesStarted, "audmix.voices.started", "Voices accepted by the mixer."},
		{&met.VoicesFinished, "audmix.voices.finished", "Voices that played to completion or were stopped."},
		{&met.VoicesFailed, "audmix.voices.failed", "Voices whose decoding failed."},
		{&met.RecordDropped, "audmix.record.dropped", "Frames lost by the recorder tap."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.ActiveVoices, err = m.Int64UpDownCounter("audmix.voices.active",
		metric.WithDescription("Voices currently being mixed."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns Metrics whose instruments record nothing.
func Discard() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return met
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level Metrics built on the global meter
// provider the first time it is called.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordDecode records one chunk's decode time for format.
func (m *Metrics) RecordDecode(ctx context.Context, format string, d time.Duration) {
	m.DecodeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("format", format)))
}

// RecordRejected adds n dropped commands with reason.
func (m *Metrics) RecordRejected(ctx context.Context, reason string, n int64) {
	if n <= 0 {
		return
	}
	m.CommandsRejected.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
}
