package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 15 * time.Second

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	celebrations    metric.Int64Counter
	bulkTransitions metric.Int64Counter
	notifications   metric.Int64Counter
	loginDenied     metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewProvider installs the global meter provider. Disabled telemetry gets a
// noop provider so instruments can always be created.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)
	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	if log != nil {
		log.Info("otlp metrics enabled", zap.String("protocol", cfg.ExporterProtocol))
	}
	return provider, nil
}

// New registers the domain counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	scope := strings.TrimSpace(cfg.ServiceName)
	if scope == "" {
		scope = "masstrack"
	}
	meter := provider.Meter(scope)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.celebrations, "masstrack_celebrations_recorded_total", "Mass celebrations written to the ledger."},
		{&m.bulkTransitions, "masstrack_bulk_intention_transitions_total", "Bulk intention pause, resume and completion events."},
		{&m.notifications, "masstrack_notifications_emitted_total", "In-app notifications created."},
		{&m.loginDenied, "masstrack_login_denied_total", "Rejected login attempts."},
		{&m.rateLimitDenied, "masstrack_rate_limit_denied_total", "Requests rejected by the client rate limiter."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// NewNoop returns instruments backed by a noop provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordCelebration counts a ledger insert by kind (bulk, personal, intention, general).
func (m *Metrics) RecordCelebration(ctx context.Context, kind string) {
	if m != nil {
		inc(ctx, m.celebrations, "kind", kind)
	}
}

// RecordBulkTransition counts pause, resume and completion transitions.
func (m *Metrics) RecordBulkTransition(ctx context.Context, transition string) {
	if m != nil {
		inc(ctx, m.bulkTransitions, "transition", transition)
	}
}

func (m *Metrics) RecordNotification(ctx context.Context, notificationType, priority string) {
	if m != nil {
		inc(ctx, m.notifications, "type", notificationType, "priority", priority)
	}
}

func (m *Metrics) RecordLoginDenied(ctx context.Context, reason string) {
	if m != nil {
		inc(ctx, m.loginDenied, "reason", reason)
	}
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m != nil {
		inc(ctx, m.rateLimitDenied, "endpoint", endpoint)
	}
}

// inc adds one to counter labelled by alternating key/value pairs.
func inc(ctx context.Context, counter metric.Int64Counter, kv ...string) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], strings.TrimSpace(kv[i+1])))
	}
	counter.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch p := strings.ToLower(strings.TrimSpace(protocol)); p {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", p)
	}
}

// Priest and entity ids never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":        {},
	"transition":  {},
	"type":        {},
	"priority":    {},
	"reason":      {},
	"endpoint":    {},
	"status_code": {},
	"job":         {},
}

// FilterAttributes drops any label outside the allowed set.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			kept = append(kept, attr)
		}
	}
	return kept
}
