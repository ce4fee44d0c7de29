package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/swearjar/internal/bot"
	"github.com/iamwavecut/swearjar/internal/config"
)

// Client is the subset of *api.BotAPI the transport talks to.
type Client interface {
	GetMe() (api.User, error)
	GetUpdates(config api.UpdateConfig) ([]api.Update, error)
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
}

// Transport adapts the Telegram Bot API long-poll to chat events. Telegram
// has no user directory lookup, so names are learned from incoming updates.
type Transport struct {
	client  Client
	timeout time.Duration
	limiter *rate.Limiter
	offset  int

	mu    sync.RWMutex
	names map[string]string
}

var allowedUpdates = []string{"message", "chat_member"}

func NewTransport(client Client, cfg config.Transport) *Transport {
	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return &Transport{
		client:  client,
		timeout: cfg.PollTimeout,
		limiter: rate.NewLimiter(limit, burst),
		names:   make(map[string]string),
	}
}

func (t *Transport) Connect(_ context.Context) (*bot.Identity, error) {
	me, err := t.client.GetMe()
	if err != nil {
		return nil, errors.WithMessage(err, "cant get bot identity")
	}
	return &bot.Identity{ID: formatID(me.ID), Name: me.UserName}, nil
}

func (t *Transport) PollEvents(ctx context.Context) ([]*bot.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	updateConfig := api.NewUpdate(t.offset)
	updateConfig.Timeout = int(t.timeout / time.Second)
	updateConfig.AllowedUpdates = allowedUpdates
	updates, err := t.client.GetUpdates(updateConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "cant get updates")
	}

	for _, update := range updates {
		if update.UpdateID >= t.offset {
			t.offset = update.UpdateID + 1
		}
		t.rememberNames(update)
	}
	return toEvents(updates), nil
}

func (t *Transport) SendMessage(ctx context.Context, channel, text string) error {
	chatID, err := parseID(channel)
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.WithMessage(err, "send rate wait")
	}
	_, err = t.client.Send(api.NewMessage(chatID, text))
	return errors.WithMessage(err, "cant send message")
}

func (t *Transport) AddReaction(ctx context.Context, channel, messageRef, reaction string) error {
	chatID, err := parseID(channel)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(messageRef)
	if err != nil {
		return errors.Wrapf(err, "invalid message ref %q", messageRef)
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.WithMessage(err, "send rate wait")
	}
	_, err = t.client.Request(api.NewSetMessageReaction(chatID, messageID, []api.ReactionType{{
		Type:  "emoji",
		Emoji: reaction,
	}}, false))
	return errors.WithMessage(err, "cant set reaction")
}

// PostRichMessage sends the image with text as its caption, or plain text
// when there is no image.
func (t *Transport) PostRichMessage(ctx context.Context, channel, text string, attachment *bot.Attachment) error {
	if attachment == nil || attachment.ImageURL == "" {
		return t.SendMessage(ctx, channel, text)
	}
	chatID, err := parseID(channel)
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.WithMessage(err, "send rate wait")
	}
	photo := api.NewPhoto(chatID, api.FileURL(attachment.ImageURL))
	photo.Caption = text
	_, err = t.client.Send(photo)
	return errors.WithMessage(err, "cant send photo")
}

// ResolveName answers from names seen in updates so far.
func (t *Transport) ResolveName(_ context.Context, userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.names[userID]
	return name, ok
}

func (t *Transport) rememberNames(update api.Update) {
	users := make([]*api.User, 0, 2)
	if update.Message != nil {
		users = append(users, update.Message.From)
	}
	if update.ChatMember != nil {
		users = append(users, &update.ChatMember.From, update.ChatMember.NewChatMember.User)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, user := range users {
		if user == nil {
			continue
		}
		if name := GetUN(user); name != "" {
			t.names[formatID(user.ID)] = name
		}
	}
}

func toEvents(updates []api.Update) []*bot.Event {
	events := make([]*bot.Event, 0, len(updates))
	for _, update := range updates {
		switch {
		case update.Message != nil:
			msg := update.Message
			e := &bot.Event{
				Type:       bot.EventMessage,
				Text:       msg.Text,
				Channel:    formatID(msg.Chat.ID),
				MessageRef: strconv.Itoa(msg.MessageID),
				Timestamp:  time.Unix(int64(msg.Date), 0),
			}
			if e.Text == "" {
				e.Text = msg.Caption
			}
			if msg.From != nil {
				e.UserID = formatID(msg.From.ID)
			}
			events = append(events, e)
		case update.ChatMember != nil:
			member := update.ChatMember
			e := &bot.Event{
				Type:      bot.EventPresence,
				Channel:   formatID(member.Chat.ID),
				Timestamp: time.Unix(int64(member.Date), 0),
				Status:    member.NewChatMember.Status,
			}
			if member.NewChatMember.User != nil {
				e.UserID = formatID(member.NewChatMember.User.ID)
			}
			events = append(events, e)
		default:
			log.WithFields(log.Fields{"object": "Transport", "update_id": update.UpdateID}).Trace("skipping update")
		}
	}
	return events
}

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = user.FirstName + " " + user.LastName
		userName = strings.TrimSpace(userName)
	}
	return userName
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(channel string) (int64, error) {
	id, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid chat id %q", channel)
	}
	return id, nil
}
