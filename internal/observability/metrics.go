package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/myfinance/backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
)

type appMetricsSet struct {
	authEventCounter       metric.Int64Counter
	otpEventCounter        metric.Int64Counter
	otpCooldownWait        metric.Float64Histogram
	sessionGateCounter     metric.Int64Counter
	ledgerOpDuration       metric.Float64Histogram
	repositoryOpCounter    metric.Int64Counter
	rateLimitCounter       metric.Int64Counter
	healthCheckCounter     metric.Int64Counter
	healthCheckDuration    metric.Float64Histogram
	notifierDeliveryEvents metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *appMetricsSet
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "ledger.operation.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("finance-tracker")
	set := &appMetricsSet{}
	if set.authEventCounter, err = meter.Int64Counter("auth.events"); err != nil {
		return nil, err
	}
	if set.otpEventCounter, err = meter.Int64Counter("otp.events"); err != nil {
		return nil, err
	}
	if set.otpCooldownWait, err = meter.Float64Histogram(
		"otp.cooldown.wait",
		metric.WithUnit("s"),
		metric.WithDescription("Remaining cooldown reported to throttled OTP send requests"),
	); err != nil {
		return nil, err
	}
	if set.sessionGateCounter, err = meter.Int64Counter("auth.session.gate.events"); err != nil {
		return nil, err
	}
	if set.ledgerOpDuration, err = meter.Float64Histogram(
		"ledger.operation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of ledger service operations in seconds"),
	); err != nil {
		return nil, err
	}
	if set.repositoryOpCounter, err = meter.Int64Counter("repository.operations"); err != nil {
		return nil, err
	}
	if set.rateLimitCounter, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
		return nil, err
	}
	if set.healthCheckCounter, err = meter.Int64Counter("health.check.results"); err != nil {
		return nil, err
	}
	if set.healthCheckDuration, err = meter.Float64Histogram(
		"health.check.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of health dependency checks in seconds"),
	); err != nil {
		return nil, err
	}
	if set.notifierDeliveryEvents, err = meter.Int64Counter("email.delivery.events"); err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = set
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func current() *appMetricsSet {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordAuthEvent counts account-flow outcomes: register, login, logout,
// profile_update, password_reset.
func RecordAuthEvent(ctx context.Context, operation, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func RecordOTPEvent(ctx context.Context, operation, status string) {
	m := current()
	if m == nil {
		return
	}
	m.otpEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func RecordOTPCooldownWait(ctx context.Context, wait time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.otpCooldownWait.Record(ctx, wait.Seconds())
}

func RecordSessionGate(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.sessionGateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordLedgerOperation(ctx context.Context, kind, operation, outcome string, d time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.ledgerOpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("decision", decision),
	))
}

func RecordHealthCheck(ctx context.Context, name string, healthy bool, d time.Duration) {
	m := current()
	if m == nil {
		return
	}
	outcome := "healthy"
	if !healthy {
		outcome = "unhealthy"
	}
	attrs := metric.WithAttributes(
		attribute.String("check", name),
		attribute.String("outcome", outcome),
	)
	m.healthCheckCounter.Add(ctx, 1, attrs)
	m.healthCheckDuration.Record(ctx, d.Seconds(), attrs)
}

func RecordEmailDelivery(ctx context.Context, provider, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.notifierDeliveryEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}
