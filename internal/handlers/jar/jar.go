package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/swearjar/internal/bot"
	"github.com/iamwavecut/swearjar/internal/db"
	"github.com/iamwavecut/swearjar/internal/i18n"
	"github.com/iamwavecut/swearjar/internal/observability"
)

const defaultHistoryLimit = 20

// Jar routes chat events: messages mentioning the bot are commands,
// everything else said by other users is checked for flagged words.
type Jar struct {
	s        bot.Service
	store    db.Client
	marker   string
	mention  *regexp.Regexp
	commands []command
}

// NewJar must be called after the service has resolved its own identity.
func NewJar(s bot.Service) *Jar {
	self := s.GetSelf()
	name := self.Name
	if name == "" {
		name = self.ID
	}
	j := &Jar{
		s:       s,
		store:   s.GetDB(),
		marker:  "@" + strings.ToLower(name),
		mention: regexp.MustCompile(`(?is)@` + regexp.QuoteMeta(name) + `\b:?\s*(\S.*)$`),
	}
	j.commands = j.commandTable()
	j.getLogEntry().WithField("marker", j.marker).Debug("created new jar")
	return j
}

func (j *Jar) Handle(ctx context.Context, e *bot.Event) (bool, error) {
	entry := j.getLogEntry().WithFields(log.Fields{
		"method":  "Handle",
		"channel": e.Channel,
		"user_id": e.UserID,
	})

	switch e.Type {
	case bot.EventPresence:
		entry.WithField("status", e.Status).Debug("presence changed")
		return true, nil
	case bot.EventMessage:
	default:
		return true, nil
	}
	if strings.TrimSpace(e.Text) == "" || e.Channel == "" {
		return true, nil
	}

	if j.isDirected(e.Text) {
		if err := j.handleDirected(ctx, e); err != nil {
			entry.WithError(err).Error("error handling command")
			return true, err
		}
		return true, nil
	}

	if e.UserID == "" || e.UserID == j.s.GetSelf().ID {
		return true, nil
	}
	if err := j.handleMessage(ctx, e); err != nil {
		entry.WithError(err).Error("error handling message")
		return true, err
	}
	return true, nil
}

func (j *Jar) isDirected(text string) bool {
	return strings.Contains(strings.ToLower(text), j.marker)
}

// extractCommand returns the text following the mention, without the
// optional colon.
func (j *Jar) extractCommand(text string) (string, bool) {
	m := j.mention.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func (j *Jar) handleDirected(ctx context.Context, e *bot.Event) error {
	var reply string
	command, ok := j.extractCommand(e.Text)
	if !ok {
		observability.RecordCommand("unknown")
		reply = i18n.Get("I don't understand that", j.s.GetLanguage())
	} else {
		var err error
		reply, err = j.Interpret(ctx, command, e.UserID, j.s.GetName(ctx, e.UserID))
		if err != nil {
			return err
		}
	}
	return errors.WithMessage(j.s.GetTransport().SendMessage(ctx, e.Channel, reply), "cant send reply")
}

func (j *Jar) historyLimit() int {
	if limit := j.s.GetJarConfig().HistoryLimit; limit > 0 {
		return limit
	}
	return defaultHistoryLimit
}

func (j *Jar) getLogEntry() *log.Entry {
	return log.WithField("object", "Jar")
}
