package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/swearjar/internal/config"
	"github.com/iamwavecut/swearjar/internal/db"
	"github.com/iamwavecut/swearjar/internal/detector"
	"github.com/iamwavecut/swearjar/internal/infra/reg"
	"github.com/iamwavecut/swearjar/internal/rates"
)

type (
	service struct {
		transport Transport
		db        db.Client
		detector  *detector.Detector
		tracker   *rates.Tracker
		names     *reg.Names
		self      Identity
		jar       config.Jar
		language  string
		now       func() time.Time
		logger    *log.Entry
	}

	Option func(*service)
)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLanguage(language string) Option {
	return func(s *service) { s.language = language }
}

func WithNameResolver(resolver reg.NameResolver) Option {
	return func(s *service) { s.names = reg.NewNames(resolver, reg.DefaultSize) }
}

func NewService(transport Transport, dbClient db.Client, d *detector.Detector, jar config.Jar, opts ...Option) *service {
	s := &service{
		transport: transport,
		db:        dbClient,
		detector:  d,
		tracker:   rates.NewTracker(jar.EscalationThreshold),
		names:     reg.NewNames(nil, reg.DefaultSize),
		jar:       jar,
		language:  "en",
		now:       time.Now,
		logger:    log.WithField("object", "Service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects the transport and records the bot's own identity, which
// handlers use to recognise mentions and their own messages.
func (s *service) Start(ctx context.Context) error {
	self, err := s.transport.Connect(ctx)
	if err != nil {
		return errors.WithMessage(err, "cant connect transport")
	}
	if self == nil || self.ID == "" {
		return errors.New("transport returned empty identity")
	}
	s.self = *self
	s.logger.WithFields(log.Fields{"self_id": self.ID, "self_name": self.Name}).Info("connected")
	return nil
}

func (s *service) Stop(_ context.Context) error {
	if s.db == nil {
		return nil
	}
	return errors.WithMessage(s.db.Close(), "cant close db")
}

func (s *service) GetTransport() Transport {
	return s.transport
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetDetector() *detector.Detector {
	return s.detector
}

func (s *service) GetTracker() *rates.Tracker {
	return s.tracker
}

func (s *service) GetName(ctx context.Context, userID string) string {
	return s.names.Get(ctx, userID)
}

func (s *service) GetSelf() Identity {
	return s.self
}

func (s *service) GetJarConfig() config.Jar {
	return s.jar
}

func (s *service) GetLanguage() string {
	return s.language
}

func (s *service) Now() time.Time {
	return s.now()
}
