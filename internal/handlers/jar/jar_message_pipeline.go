package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/iamwavecut/swearjar/internal/bot"
	"github.com/iamwavecut/swearjar/internal/db"
	"github.com/iamwavecut/swearjar/internal/i18n"
	"github.com/iamwavecut/swearjar/internal/observability"
	"github.com/iamwavecut/swearjar/internal/utils/text"
)

func (j *Jar) handleMessage(ctx context.Context, e *bot.Event) error {
	words := j.s.GetDetector().Detect(text.Tokenize(e.Text))
	if len(words) == 0 {
		return nil
	}
	entry := j.getLogEntry().WithFields(log.Fields{
		"method":  "handleMessage",
		"user_id": e.UserID,
		"words":   words,
	})

	cfg := j.s.GetJarConfig()
	userName := j.s.GetName(ctx, e.UserID)
	if err := j.recordSwears(ctx, e.UserID, userName, words, cfg.FineCents); err != nil {
		return err
	}
	observability.RecordSwears(len(words), cfg.FineCents)
	observability.Audit.Info("swears fined",
		zap.String("user_id", e.UserID),
		zap.String("channel", e.Channel),
		zap.Strings("words", words),
		zap.Int64("fine_cents", cfg.FineCents),
	)
	entry.Debug("swears recorded")

	total, err := j.store.TotalFines(ctx)
	if err != nil {
		return errors.WithMessage(err, "cant get total fines")
	}

	transport := j.s.GetTransport()
	reply := fmt.Sprintf(
		i18n.Get("Oooo - %s said %s. Swear Jar is up to %s", j.s.GetLanguage()),
		userName, strings.Join(words, " "), FormatCents(total),
	)
	if err := transport.SendMessage(ctx, e.Channel, reply); err != nil {
		return errors.WithMessage(err, "cant send swear reply")
	}
	if cfg.Reaction != "" && e.MessageRef != "" {
		if err := transport.AddReaction(ctx, e.Channel, e.MessageRef, cfg.Reaction); err != nil {
			return errors.WithMessage(err, "cant add reaction")
		}
	}

	if !j.s.GetTracker().RecordSwearEvent(j.s.Now().Minute()) {
		return nil
	}
	observability.RecordEscalation()
	observability.Audit.Info("swear rate escalated", zap.String("channel", e.Channel), zap.String("user_id", e.UserID))
	entry.Info("swear rate escalated")
	return j.escalate(ctx, e.Channel)
}

func (j *Jar) recordSwears(ctx context.Context, userID, userName string, words []string, fineCents int64) error {
	records := make([]*db.SwearRecord, 0, len(words))
	for _, word := range words {
		records = append(records, &db.SwearRecord{
			UserID:    userID,
			UserName:  userName,
			SwearWord: word,
			Cents:     fineCents,
		})
	}
	return errors.WithMessage(j.store.RecordSwears(ctx, records), "cant record swears")
}

func (j *Jar) escalate(ctx context.Context, channel string) error {
	cfg := j.s.GetJarConfig()
	threshold := j.s.GetTracker().Threshold()
	message := fmt.Sprintf(
		i18n.Get("That's %d swears in a minute! Take a breath and keep it clean, or the moderators will step in.", j.s.GetLanguage()),
		threshold,
	)
	transport := j.s.GetTransport()
	if cfg.EscalationImageURL != "" {
		attachment := &bot.Attachment{
			Title:    i18n.Get("Language!", j.s.GetLanguage()),
			ImageURL: cfg.EscalationImageURL,
		}
		return errors.WithMessage(transport.PostRichMessage(ctx, channel, message, attachment), "cant post escalation")
	}
	return errors.WithMessage(transport.SendMessage(ctx, channel, message), "cant send escalation")
}
