// Package telemetry provides OpenTelemetry metrics for source-management.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	// serviceName is the name of the service for telemetry purposes.
	serviceName = "source-management"
)

// Metrics records operational counters for forge calls and token refreshes.
// A nil *Metrics is safe to use; all recording methods are no-receiver-state.
type Metrics struct{}

// options holds the configuration options for the Metrics instance.
type options struct {
	ctx          context.Context
	exporter     string
	otlpEndpoint string
	schemaURL    string
	attributes   []attribute.KeyValue
}

// Option is a function that sets an option for the Metrics instance.
type Option func(*options)

// WithContext sets the context for the Metrics instance.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithExporter sets the exporter for the Metrics instance.
func WithExporter(exporter string) Option {
	return func(o *options) {
		o.exporter = exporter
	}
}

// WithOTLPEndpoint sets the OTLP endpoint for the Metrics instance.
func WithOTLPEndpoint(endpoint string) Option {
	return func(o *options) {
		o.otlpEndpoint = endpoint
	}
}

// WithAttributes sets the attributes for the Metrics instance.
func WithAttributes(attributes ...attribute.KeyValue) Option {
	return func(o *options) {
		o.attributes = append(o.attributes, attributes...)
	}
}

// Attribute is a helper function to create an attribute.KeyValue.
func Attribute(key string, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// defaultOptions returns the default options for the Metrics instance.
func defaultOptions() *options {
	return &options{
		ctx:          context.Background(),
		exporter:     "stdout",
		otlpEndpoint: "localhost:4317",
		schemaURL:    "https://opentelemetry.io/schemas/1.4.0",
		attributes:   []attribute.KeyValue{Attribute("service.name", serviceName)},
	}
}

// NewMetrics creates a new instance of Metrics.
// It sets up the OpenTelemetry SDK for metrics collection and returns a shutdown function.
func NewMetrics(opts ...Option) (*Metrics, func(context.Context) error, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	m := &Metrics{}
	shutdown, err := m.setupOtelSDK(o.ctx, o)
	if err != nil {
		return nil, nil, errors.New("failed to set up OpenTelemetry SDK: " + err.Error())
	}
	return m, shutdown, nil
}

// setupOtelSDK initializes the OpenTelemetry SDK for metrics collection.
func (m *Metrics) setupOtelSDK(ctx context.Context, opts *options) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	prop := m.newPropagator()
	otel.SetTextMapPropagator(prop)

	meterProvider, err := m.newMeterProvider(ctx, opts)
	if err != nil {
		handleErr(err)
		return
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	return
}

// newPropagator creates a new OpenTelemetry text map propagator.
func (m *Metrics) newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// newMeterProvider creates a new OpenTelemetry meter provider.
func (m *Metrics) newMeterProvider(ctx context.Context, opts *options) (*metric.MeterProvider, error) {
	var (
		metricExporter metric.Exporter
		err            error
	)
	switch opts.exporter {
	case "stdout":
		metricExporter, err = stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
	case "otlp":
		metricExporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithEndpoint(opts.otlpEndpoint),
		)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported exporter type: " + opts.exporter)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(opts.attributes...),
		resource.WithSchemaURL(opts.schemaURL),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
	)
	return meterProvider, nil
}
