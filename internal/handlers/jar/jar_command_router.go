package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/iamwavecut/swearjar/internal/i18n"
	"github.com/iamwavecut/swearjar/internal/observability"
	"github.com/iamwavecut/swearjar/internal/utils/text"
)

type (
	commandRequest struct {
		text     string
		userID   string
		userName string
	}

	command struct {
		name   string
		match  func(text string) bool
		handle func(ctx context.Context, req *commandRequest) (string, error)
	}
)

const historyTemplate = `{{ range .entries }}{{ .WhenSwore.UTC.Format "2006-01-02 15:04" }} {{ .SwearWord }}
{{ end }}`

func hasPrefix(prefix string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, prefix) }
}

func contains(sub string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, sub) }
}

// commandTable is evaluated top to bottom, the first match wins.
func (j *Jar) commandTable() []command {
	return []command{
		{name: "help", match: hasPrefix("help"), handle: j.helpCommand},
		{name: "total", match: hasPrefix("total"), handle: j.totalCommand},
		{name: "damage", match: contains("what's the damage"), handle: j.damageCommand},
		{name: "my_swears", match: hasPrefix("my swear"), handle: j.mySwearsCommand},
		{name: "insult", match: hasPrefix("insult"), handle: j.insultCommand},
		{name: "leaders", match: hasPrefix("leaders"), handle: j.leadersCommand},
		{name: "add_word", match: contains("is a dirty word"), handle: j.addWordCommand},
		{name: "remove_word", match: contains("is not a dirty word"), handle: j.removeWordCommand},
		{name: "pay", match: hasPrefix("pay "), handle: j.payCommand},
	}
}

func normalizeCommand(cmd string) string {
	cmd = strings.ReplaceAll(cmd, "’", "'")
	return strings.ToLower(strings.TrimSpace(cmd))
}

// Interpret maps command text to a reply. An error is returned only when a
// ledger write fails, read failures produce an apologetic reply instead.
func (j *Jar) Interpret(ctx context.Context, cmd, userID, userName string) (string, error) {
	req := &commandRequest{
		text:     normalizeCommand(cmd),
		userID:   userID,
		userName: userName,
	}
	for _, c := range j.commands {
		if !c.match(req.text) {
			continue
		}
		observability.RecordCommand(c.name)
		return c.handle(ctx, req)
	}
	observability.RecordCommand("unknown")
	return i18n.Get("I don't understand that", j.s.GetLanguage()), nil
}

func (j *Jar) unavailable(err error, cmd string) string {
	j.getLogEntry().WithError(err).WithField("command", cmd).Error("ledger read failed")
	return i18n.Get("Sorry, the swear jar ledger is unavailable right now.", j.s.GetLanguage())
}

func (j *Jar) helpCommand(_ context.Context, _ *commandRequest) (string, error) {
	return i18n.Get("Things I understand:\nhelp - this message\ntotal - how much is in the swear jar\nwhat's the damage - your fines, payments and balance\nmy swears - your recent swears\nleaders - who has sworn the most\n<word> is a dirty word - add a word to the list\n<word> is not a dirty word - remove a word from the list\npay $<amount> - record a payment\ninsult - coming soon", j.s.GetLanguage()), nil
}

func (j *Jar) totalCommand(ctx context.Context, req *commandRequest) (string, error) {
	total, err := j.store.TotalFines(ctx)
	if err != nil {
		return j.unavailable(err, "total"), nil
	}
	return fmt.Sprintf(i18n.Get("The swear jar is up to %s", j.s.GetLanguage()), FormatCents(total)), nil
}

func (j *Jar) damageCommand(ctx context.Context, req *commandRequest) (string, error) {
	fines, err := j.store.TotalFinesFor(ctx, req.userID)
	if err != nil {
		return j.unavailable(err, "damage"), nil
	}
	paid, err := j.store.TotalPaymentsFor(ctx, req.userID)
	if err != nil {
		return j.unavailable(err, "damage"), nil
	}
	return fmt.Sprintf(
		i18n.Get("%s, you owe %s in fines and have paid %s. Your balance is %s.", j.s.GetLanguage()),
		req.userName, FormatCents(fines), FormatCents(paid), FormatCents(fines-paid),
	), nil
}

func (j *Jar) mySwearsCommand(ctx context.Context, req *commandRequest) (string, error) {
	entries, err := j.store.RecentSwears(ctx, req.userID, j.historyLimit())
	if err != nil {
		return j.unavailable(err, "my_swears"), nil
	}
	if len(entries) == 0 {
		return i18n.Get("You haven't sworn yet. Keep it up!", j.s.GetLanguage()), nil
	}
	lines := tool.ExecTemplate(historyTemplate, map[string]any{"entries": entries})
	return i18n.Get("Your recent swears:", j.s.GetLanguage()) + "\n" + strings.TrimRight(lines, "\n"), nil
}

func (j *Jar) insultCommand(_ context.Context, _ *commandRequest) (string, error) {
	return i18n.Get("Insults are not implemented yet. Consider yourself lucky.", j.s.GetLanguage()), nil
}

func (j *Jar) leadersCommand(ctx context.Context, _ *commandRequest) (string, error) {
	entries, err := j.store.Leaderboard(ctx)
	if err != nil {
		return j.unavailable(err, "leaders"), nil
	}
	if len(entries) == 0 {
		return i18n.Get("Nobody has sworn yet.", j.s.GetLanguage()), nil
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, i18n.Get("Leaderboard:", j.s.GetLanguage()))
	for _, entry := range entries {
		lines = append(lines, FormatCents(entry.TotalCents)+" "+entry.UserName)
	}
	return strings.Join(lines, "\n"), nil
}

// wordSubject returns the word in front of "is ..." or false when the
// command does not have that shape.
func wordSubject(cmd string) (string, bool) {
	tokens := text.Tokenize(cmd)
	if len(tokens) < 2 || tokens[1] != "is" {
		return "", false
	}
	return tokens[0], true
}

func (j *Jar) addWordCommand(_ context.Context, req *commandRequest) (string, error) {
	word, ok := wordSubject(req.text)
	if !ok {
		return i18n.Get("Usage: <word> is a dirty word", j.s.GetLanguage()), nil
	}
	j.s.GetDetector().AddWord(word)
	j.getLogEntry().WithFields(log.Fields{"word": word, "user_id": req.userID}).Info("dirty word added")
	observability.Audit.Info("word added", zap.String("user_id", req.userID), zap.String("word", word))
	return fmt.Sprintf(i18n.Get(`OK, "%s" is now a dirty word.`, j.s.GetLanguage()), word), nil
}

func (j *Jar) removeWordCommand(_ context.Context, req *commandRequest) (string, error) {
	word, ok := wordSubject(req.text)
	if !ok {
		return i18n.Get("Usage: <word> is not a dirty word", j.s.GetLanguage()), nil
	}
	if !j.s.GetDetector().RemoveWord(word) {
		return fmt.Sprintf(i18n.Get(`"%s" wasn't a dirty word anyway.`, j.s.GetLanguage()), word), nil
	}
	j.getLogEntry().WithFields(log.Fields{"word": word, "user_id": req.userID}).Info("dirty word removed")
	observability.Audit.Info("word removed", zap.String("user_id", req.userID), zap.String("word", word))
	return fmt.Sprintf(i18n.Get(`OK, "%s" is no longer a dirty word.`, j.s.GetLanguage()), word), nil
}

func (j *Jar) payCommand(ctx context.Context, req *commandRequest) (string, error) {
	parsed := ParsePayment(req.text)
	if parsed.Failure != nil {
		j.getLogEntry().WithFields(log.Fields{
			"fragment": parsed.Failure.Fragment,
			"reason":   parsed.Failure.Reason,
		}).Debug("payment rejected")
		return fmt.Sprintf(
			i18n.Get(`Sorry, I can't make sense of "%s" as an amount. Try: pay $5.50`, j.s.GetLanguage()),
			parsed.Failure.Fragment,
		), nil
	}
	if err := j.store.RecordPayment(ctx, req.userID, req.userName, parsed.Cents); err != nil {
		return "", errors.WithMessage(err, "cant record payment")
	}
	observability.RecordPayment()
	observability.Audit.Info("payment recorded", zap.String("user_id", req.userID), zap.Int64("cents", parsed.Cents))
	return fmt.Sprintf(
		i18n.Get("Thanks %s, %s has been paid into the swear jar.", j.s.GetLanguage()),
		req.userName, FormatCents(parsed.Cents),
	), nil
}
