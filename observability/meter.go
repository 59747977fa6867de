package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/osal/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name reported for the host program.
	ServiceName string
	// ServiceVersion is the version of the host program.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ProcessMetrics holds the instruments recorded by the process launcher
// and waiter. Methods on a nil *ProcessMetrics do nothing.
type ProcessMetrics struct {
	launchTotal    metric.Int64Counter
	launchDuration metric.Float64Histogram
	waitTotal      metric.Int64Counter
	errorTotal     metric.Int64Counter
}

// NewProcessMetrics creates the process instruments on the given meter.
func NewProcessMetrics(meter metric.Meter) (*ProcessMetrics, error) {
	launchTotal, err := meter.Int64Counter("process.launch.total",
		metric.WithDescription("Total number of child launches by mode and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.launch.total counter: %w", err)
	}

	launchDuration, err := meter.Float64Histogram("process.launch.duration",
		metric.WithDescription("Time spent in the launch sequence in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.launch.duration histogram: %w", err)
	}

	waitTotal, err := meter.Int64Counter("process.wait.total",
		metric.WithDescription("Total number of waits by mode and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.wait.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("process.error.total",
		metric.WithDescription("Total errors by code and operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.error.total counter: %w", err)
	}

	return &ProcessMetrics{
		launchTotal:    launchTotal,
		launchDuration: launchDuration,
		waitTotal:      waitTotal,
		errorTotal:     errorTotal,
	}, nil
}

// RecordLaunch records one launch attempt.
func (m *ProcessMetrics) RecordLaunch(ctx context.Context, program, mode, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.launchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrProgram, program),
		attribute.String(AttrMode, mode),
		attribute.String(AttrStatus, status),
	))
	m.launchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrStatus, status),
	))
}

// RecordWait records one completed wait call.
func (m *ProcessMetrics) RecordWait(ctx context.Context, mode, result string) {
	if m == nil {
		return
	}
	m.waitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String("result", result),
	))
}

// RecordError records an error by code and operation.
func (m *ProcessMetrics) RecordError(ctx context.Context, code, operation string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String("operation", operation),
	))
}
