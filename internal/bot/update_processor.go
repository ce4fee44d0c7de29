package bot

import (
	"context"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iamwavecut/swearjar/internal/observability"
)

const (
	UpdateTimeout = 5 * time.Minute

	pollRetryDelay = 3 * time.Second
)

type UpdateProcessor struct {
	s              Service
	updateHandlers []Handler
}

var registeredHandlers = make(map[string]Handler)

func RegisterUpdateHandler(title string, handler Handler) {
	registeredHandlers[title] = handler
}

func NewUpdateProcessor(s Service, enabled []string) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0, len(enabled))
	for _, handlerName := range enabled {
		if h, ok := registeredHandlers[handlerName]; !ok || h == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		enabledHandlers = append(enabledHandlers, registeredHandlers[handlerName])
	}

	return &UpdateProcessor{
		s:              s,
		updateHandlers: enabledHandlers,
	}
}

// Process runs the enabled handlers over a single event. Events older than
// UpdateTimeout are dropped so a restart does not fine a backlog twice. A
// handler panic is returned as an error for this event only.
func (up *UpdateProcessor) Process(ctx context.Context, e *Event) (err error) {
	if e == nil {
		return errors.New("event is nil")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entry := log.WithFields(log.Fields{
		"object":   "UpdateProcessor",
		"event_id": uuid.New(),
		"type":     e.Type,
		"channel":  e.Channel,
	})
	if !e.Timestamp.IsZero() && up.s.Now().Sub(e.Timestamp) > UpdateTimeout {
		entry.WithField("age", up.s.Now().Sub(e.Timestamp)).Debug("skipping outdated event")
		return nil
	}

	ctx, span := observability.Tracer().Start(ctx, "process_event")
	span.SetAttributes(
		attribute.String("event.type", string(e.Type)),
		attribute.String("event.channel", e.Channel),
	)
	done := observability.StartEventProcessing()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		done(status)
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panicked: %v", r)
			entry.WithField("panic", r).Error("recovered handler panic")
		}
	}()

	for _, handler := range up.updateHandlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, handleErr := handler.Handle(ctx, e)
		if handleErr != nil {
			return errors.WithMessage(handleErr, "handling error")
		}
		if !proceed {
			entry.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

// Run polls the transport and processes events one at a time, in arrival
// order, until ctx is done. Poll and processing failures are logged and the
// loop carries on.
func (up *UpdateProcessor) Run(ctx context.Context) error {
	entry := log.WithFields(log.Fields{"object": "UpdateProcessor", "method": "Run"})
	transport := up.s.GetTransport()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, err := transport.PollEvents(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.RecordPollError()
			entry.WithError(err).Error("cant poll events")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, e := range events {
			if err := up.Process(ctx, e); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				entry.WithError(err).Errorln("cant process event")
			}
		}
	}
}
