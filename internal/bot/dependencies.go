package bot

import (
	"context"
	"time"

	"github.com/iamwavecut/swearjar/internal/config"
	"github.com/iamwavecut/swearjar/internal/db"
	"github.com/iamwavecut/swearjar/internal/detector"
	"github.com/iamwavecut/swearjar/internal/rates"
)

// Transport is the chat platform connection.
type Transport interface {
	Connect(ctx context.Context) (*Identity, error)
	PollEvents(ctx context.Context) ([]*Event, error)
	SendMessage(ctx context.Context, channel, text string) error
	AddReaction(ctx context.Context, channel, messageRef, reaction string) error
	PostRichMessage(ctx context.Context, channel, text string, attachment *Attachment) error
}

type ServiceTransport interface {
	GetTransport() Transport
}

type ServiceDB interface {
	GetDB() db.Client
}

// Service is the moderation context shared by handlers: the word set, the
// escalation tracker, the name cache and the bot's own identity.
type Service interface {
	ServiceTransport
	ServiceDB
	GetDetector() *detector.Detector
	GetTracker() *rates.Tracker
	GetName(ctx context.Context, userID string) string
	GetSelf() Identity
	GetJarConfig() config.Jar
	GetLanguage() string
	Now() time.Time
}

// Handler processes one event. Returning proceed=false stops the chain.
type Handler interface {
	Handle(ctx context.Context, e *Event) (proceed bool, err error)
}
