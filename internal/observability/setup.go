package observability

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
)

const tracerName = "github.com/iamwavecut/grouppolice"

type Options struct {
	SentryDSN string
	Release   string
}

var (
	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "violations_total",
			Help: "Total number of detected rule violations",
		},
		[]string{"kind"},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "Time spent processing group messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	registerOnce sync.Once
)

// Collectors is exposed for custom registries.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{violationsTotal, messageProcessingDuration}
}

// Init registers metrics, installs the tracer provider and, when a DSN is set, the Sentry client.
// The returned function flushes and shuts everything down.
func Init(ctx context.Context, opts Options) (func(context.Context) error, error) {
	registerOnce.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              opts.SentryDSN,
			Release:          opts.Release,
			AttachStacktrace: true,
		}); err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		log.WithField("method", "observability.Init").Info("sentry enabled")
	}

	return func(ctx context.Context) error {
		sentry.Flush(2 * time.Second)
		return tp.Shutdown(ctx)
	}, nil
}

func RecordViolation(kind string) {
	violationsTotal.WithLabelValues(kind).Inc()
}

// StartMessageProcessing returns a function recording the duration under the given status.
func StartMessageProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		messageProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}

// StartSpan opens a span; the returned function ends it, marking it failed when err is not nil.
func StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(err error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	for k, v := range attrs {
		span.SetAttributes(attribute.String(k, v))
	}
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// CaptureError forwards err to Sentry; without a configured client it is a no-op.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}
