package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/iamwavecut/swearjar"

var (
	// Audit receives one JSON record per ledger-affecting action. It is a
	// no-op logger until Init runs.
	Audit = zap.NewNop()

	swearsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swearjar_swears_total",
		Help: "Total number of flagged words recorded",
	})

	finesCentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swearjar_fines_cents_total",
		Help: "Total fines recorded, in cents",
	})

	paymentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swearjar_payments_total",
		Help: "Total number of payments recorded",
	})

	escalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swearjar_escalations_total",
		Help: "Total number of per-minute escalations",
	})

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swearjar_commands_total",
			Help: "Directed commands by recognised intent",
		},
		[]string{"command"},
	)

	pollErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swearjar_poll_errors_total",
		Help: "Failed event polls",
	})

	eventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swearjar_event_processing_duration_seconds",
			Help:    "Time spent processing one chat event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		swearsTotal,
		finesCentsTotal,
		paymentsTotal,
		escalationsTotal,
		commandsTotal,
		pollErrorsTotal,
		eventProcessingDuration,
	)
}

// Init installs the SDK tracer provider and the audit logger. The returned
// func flushes and shuts both down.
func Init(_ context.Context) func(context.Context) error {
	if logger, err := zap.NewProduction(); err != nil {
		log.WithError(err).Warn("cant create audit logger")
	} else {
		Audit = logger.Named("audit")
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return func(ctx context.Context) error {
		_ = Audit.Sync()
		return tp.Shutdown(ctx)
	}
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func RecordSwears(words int, fineCents int64) {
	swearsTotal.Add(float64(words))
	finesCentsTotal.Add(float64(int64(words) * fineCents))
}

func RecordPayment() {
	paymentsTotal.Inc()
}

func RecordEscalation() {
	escalationsTotal.Inc()
}

func RecordCommand(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

func RecordPollError() {
	pollErrorsTotal.Inc()
}

// StartEventProcessing returns a func recording the elapsed time under the given status.
func StartEventProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		eventProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}

// Server exposes /metrics. An empty address disables it.
type Server struct {
	addr string
	srv  *http.Server
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start(_ context.Context) error {
	if s.addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("metrics server listening")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
