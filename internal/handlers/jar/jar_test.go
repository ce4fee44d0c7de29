package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/swearjar/internal/bot"
	"github.com/iamwavecut/swearjar/internal/config"
	"github.com/iamwavecut/swearjar/internal/db"
	"github.com/iamwavecut/swearjar/internal/db/sqlite"
	"github.com/iamwavecut/swearjar/internal/detector"
)

const (
	testChannel = "C1"
	botID       = "B1"
	botName     = "swearjar_bot"
)

type (
	sentMessage struct {
		channel    string
		text       string
		attachment *bot.Attachment
	}

	addedReaction struct {
		channel    string
		messageRef string
		reaction   string
	}

	transportStub struct {
		mu        sync.Mutex
		sent      []sentMessage
		rich      []sentMessage
		reactions []addedReaction
		sendErr   error
	}

	namesStub map[string]string

	failingStore struct {
		db.Client
		err error
	}
)

func (t *transportStub) Connect(context.Context) (*bot.Identity, error) {
	return &bot.Identity{ID: botID, Name: botName}, nil
}

func (t *transportStub) PollEvents(context.Context) ([]*bot.Event, error) {
	return nil, nil
}

func (t *transportStub) SendMessage(_ context.Context, channel, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, sentMessage{channel: channel, text: text})
	return nil
}

func (t *transportStub) AddReaction(_ context.Context, channel, messageRef, reaction string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reactions = append(t.reactions, addedReaction{channel: channel, messageRef: messageRef, reaction: reaction})
	return nil
}

func (t *transportStub) PostRichMessage(_ context.Context, channel, text string, attachment *bot.Attachment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rich = append(t.rich, sentMessage{channel: channel, text: text, attachment: attachment})
	return nil
}

func (t *transportStub) texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := make([]string, 0, len(t.sent))
	for _, m := range t.sent {
		res = append(res, m.text)
	}
	return res
}

func (n namesStub) ResolveName(_ context.Context, userID string) (string, bool) {
	name, ok := n[userID]
	return name, ok
}

func (f *failingStore) RecordSwears(context.Context, []*db.SwearRecord) error {
	return f.err
}

func (f *failingStore) RecordPayment(context.Context, string, string, int64) error {
	return f.err
}

func (f *failingStore) TotalFines(context.Context) (int64, error) {
	return 0, f.err
}

type fixture struct {
	jar       *Jar
	transport *transportStub
	store     db.Client
	detector  *detector.Detector
}

func defaultJarConfig() config.Jar {
	return config.Jar{
		FineCents:           20,
		EscalationThreshold: 5,
		HistoryLimit:        20,
		Reaction:            "🙊",
	}
}

func newFixture(t *testing.T, cfg config.Jar, wrap func(db.Client) db.Client, words ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	client, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "ledger.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var store db.Client = client
	if wrap != nil {
		store = wrap(client)
	}

	transport := &transportStub{}
	d := detector.New(words...)
	clock := time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC)
	s := bot.NewService(transport, store, d, cfg,
		bot.WithClock(func() time.Time { return clock }),
		bot.WithNameResolver(namesStub{"u1": "Al", "u2": "Bo"}),
	)
	require.NoError(t, s.Start(ctx))

	return &fixture{jar: NewJar(s), transport: transport, store: client, detector: d}
}

func message(userID, text string) *bot.Event {
	return &bot.Event{
		Type:       bot.EventMessage,
		Text:       text,
		UserID:     userID,
		Channel:    testChannel,
		MessageRef: "m1",
	}
}

func TestSwearIsRecordedAndAnnounced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	proceed, err := f.jar.Handle(ctx, message("u1", "that was a darn shame"))
	require.NoError(t, err)
	assert.True(t, proceed)

	fines, err := f.store.TotalFinesFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), fines)

	entries, err := f.store.RecentSwears(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "darn", entries[0].SwearWord)

	require.Equal(t, []string{"Oooo - Al said darn. Swear Jar is up to $0.20"}, f.transport.texts())
	require.Len(t, f.transport.reactions, 1)
	assert.Equal(t, addedReaction{channel: testChannel, messageRef: "m1", reaction: "🙊"}, f.transport.reactions[0])
}

func TestEveryOccurrenceIsFined(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn", "heck")

	_, err := f.jar.Handle(ctx, message("u1", "darn darn HECK"))
	require.NoError(t, err)

	fines, err := f.store.TotalFinesFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), fines)
	assert.Equal(t, []string{"Oooo - Al said darn darn heck. Swear Jar is up to $0.60"}, f.transport.texts())
}

func TestCleanMessagesAndOwnMessagesAreIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	for _, e := range []*bot.Event{
		message("u1", "what a lovely day"),
		message(botID, "darn"),
		message("u1", "   "),
		{Type: bot.EventPresence, UserID: "u1", Status: "member"},
	} {
		_, err := f.jar.Handle(ctx, e)
		require.NoError(t, err)
	}

	total, err := f.store.TotalFines(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.transport.texts())
	assert.Empty(t, f.transport.reactions)
}

func TestUnknownUserNameFallsBackToID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	_, err := f.jar.Handle(ctx, message("u9", "darn"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Oooo - u9 said darn. Swear Jar is up to $0.20"}, f.transport.texts())
}

func TestEscalationOnFifthSwearWithinMinute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	for i := 0; i < 4; i++ {
		_, err := f.jar.Handle(ctx, message("u1", "darn"))
		require.NoError(t, err)
	}
	assert.Len(t, f.transport.texts(), 4)

	_, err := f.jar.Handle(ctx, message("u1", "darn"))
	require.NoError(t, err)

	texts := f.transport.texts()
	require.Len(t, texts, 6)
	assert.Contains(t, texts[5], "5 swears in a minute")
	assert.Empty(t, f.transport.rich)
}

func TestEscalationPostsImageWhenConfigured(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := defaultJarConfig()
	cfg.EscalationThreshold = 2
	cfg.EscalationImageURL = "https://example.org/language.gif"
	f := newFixture(t, cfg, nil, "darn")

	for i := 0; i < 2; i++ {
		_, err := f.jar.Handle(ctx, message("u1", "darn"))
		require.NoError(t, err)
	}

	require.Len(t, f.transport.rich, 1)
	assert.Equal(t, cfg.EscalationImageURL, f.transport.rich[0].attachment.ImageURL)
	assert.Contains(t, f.transport.rich[0].text, "2 swears in a minute")
	assert.Len(t, f.transport.texts(), 2)
}

func TestLedgerWriteFailureSuppressesReply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("disk full")
	f := newFixture(t, defaultJarConfig(), func(c db.Client) db.Client {
		return &failingStore{Client: c, err: boom}
	}, "darn")

	_, err := f.jar.Handle(ctx, message("u1", "darn"))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, f.transport.texts())
	assert.Empty(t, f.transport.reactions)
	assert.Zero(t, f.jar.s.GetTracker().Count())
}

func TestTransportFailureAbortsEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")
	f.transport.sendErr = errors.New("offline")

	_, err := f.jar.Handle(ctx, message("u1", "darn"))
	require.Error(t, err)
	assert.Empty(t, f.transport.reactions)

	fines, err := f.store.TotalFinesFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), fines)
}

func TestDirectedMessagesAreReplied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	for _, text := range []string{
		"@swearjar_bot total",
		"@SwearJar_Bot: total",
		"hey @swearjar_bot   TOTAL please",
	} {
		_, err := f.jar.Handle(ctx, message("u1", text))
		require.NoError(t, err)
	}
	_, err := f.jar.Handle(ctx, message("u1", "@swearjar_bot"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"The swear jar is up to $0.00",
		"The swear jar is up to $0.00",
		"The swear jar is up to $0.00",
		"I don't understand that",
	}, f.transport.texts())
}

func TestDirectedMessageWithSwearIsNotFined(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	_, err := f.jar.Handle(ctx, message("u1", "@swearjar_bot darn is not a dirty word"))
	require.NoError(t, err)

	total, err := f.store.TotalFines(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Equal(t, []string{`OK, "darn" is no longer a dirty word.`}, f.transport.texts())
}

func TestInterpretCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil, "darn")

	require.NoError(t, f.store.RecordSwear(ctx, "u1", "Al", "darn", 20))
	require.NoError(t, f.store.RecordSwear(ctx, "u1", "Al", "heck", 20))
	require.NoError(t, f.store.RecordSwear(ctx, "u2", "Bo", "darn", 60))
	require.NoError(t, f.store.RecordPayment(ctx, "u1", "Al", 15))

	tests := []struct {
		name     string
		command  string
		contains []string
		equals   string
	}{
		{name: "help", command: "help", contains: []string{"Things I understand", "pay $<amount>"}},
		{name: "total", command: "total", equals: "The swear jar is up to $1.00"},
		{name: "damage", command: "What’s the damage?", equals: "Al, you owe $0.40 in fines and have paid $0.15. Your balance is $0.25."},
		{name: "my swears", command: "my swears", contains: []string{"Your recent swears:", "heck", "darn"}},
		{name: "insult", command: "insult Bo", equals: "Insults are not implemented yet. Consider yourself lucky."},
		{name: "leaders", command: "leaders", equals: "Leaderboard:\n$0.60 Bo\n$0.40 Al"},
		{name: "unknown", command: "sing a song", equals: "I don't understand that"},
		{name: "literal prefixes", command: "leader board", equals: "I don't understand that"},
		{name: "help wins over dirty word", command: "help is a dirty word", contains: []string{"Things I understand"}},
		{name: "add usage", command: "is a dirty word", equals: "Usage: <word> is a dirty word"},
		{name: "pay rejected", command: "pay $abc", equals: `Sorry, I can't make sense of "abc" as an amount. Try: pay $5.50`},
	}

	for _, tt := range tests {
		got, err := f.jar.Interpret(ctx, tt.command, "u1", "Al")
		require.NoError(t, err, tt.name)
		if tt.equals != "" {
			assert.Equal(t, tt.equals, got, tt.name)
		}
		for _, sub := range tt.contains {
			assert.Contains(t, got, sub, tt.name)
		}
	}

	paid, err := f.store.TotalPaymentsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), paid)
}

func TestMySwearsNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil)

	got, err := f.jar.Interpret(ctx, "my swears", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, "You haven't sworn yet. Keep it up!", got)

	require.NoError(t, f.store.RecordSwear(ctx, "u1", "Al", "darn", 20))
	require.NoError(t, f.store.RecordSwear(ctx, "u1", "Al", "heck", 20))

	got, err = f.jar.Interpret(ctx, "my swears", "u1", "Al")
	require.NoError(t, err)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], " heck"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], " darn"), lines[2])
}

func TestLeadersWhenEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, defaultJarConfig(), nil)

	got, err := f.jar.Interpret(context.Background(), "leaders", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, "Nobody has sworn yet.", got)
}

func TestPaymentIsRecorded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil)

	got, err := f.jar.Interpret(ctx, "pay $5.50", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, "Thanks Al, $5.50 has been paid into the swear jar.", got)

	_, err = f.jar.Interpret(ctx, "PAY $1.999", "u1", "Al")
	require.NoError(t, err)

	for _, cmd := range []string{"pay $1e2000000000", "pay $100000000000000000000", "pay 5"} {
		got, err = f.jar.Interpret(ctx, cmd, "u1", "Al")
		require.NoError(t, err)
		assert.Contains(t, got, "Sorry, I can't make sense of", cmd)
	}

	paid, err := f.store.TotalPaymentsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(749), paid)
}

func TestPaymentWriteFailureReturnsError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("locked")
	f := newFixture(t, defaultJarConfig(), func(c db.Client) db.Client {
		return &failingStore{Client: c, err: boom}
	})

	_, err := f.jar.Handle(ctx, message("u1", "@swearjar_bot pay $5"))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, f.transport.texts())
}

func TestLedgerReadFailureRepliesUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), func(c db.Client) db.Client {
		return &failingStore{Client: c, err: errors.New("gone")}
	})

	got, err := f.jar.Interpret(ctx, "total", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, the swear jar ledger is unavailable right now.", got)
}

func TestDirtyWordsCanBeAddedAndRemoved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, defaultJarConfig(), nil)

	_, err := f.jar.Handle(ctx, message("u1", "fiddlesticks"))
	require.NoError(t, err)
	assert.Empty(t, f.transport.texts())

	got, err := f.jar.Interpret(ctx, "Fiddlesticks is a dirty word", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, `OK, "fiddlesticks" is now a dirty word.`, got)
	assert.True(t, f.detector.Contains("fiddlesticks"))

	_, err = f.jar.Handle(ctx, message("u1", "oh fiddlesticks"))
	require.NoError(t, err)
	assert.Len(t, f.transport.texts(), 1)

	got, err = f.jar.Interpret(ctx, "fiddlesticks is not a dirty word", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, `OK, "fiddlesticks" is no longer a dirty word.`, got)

	got, err = f.jar.Interpret(ctx, "fiddlesticks is not a dirty word", "u1", "Al")
	require.NoError(t, err)
	assert.Equal(t, `"fiddlesticks" wasn't a dirty word anyway.`, got)

	_, err = f.jar.Handle(ctx, message("u1", "fiddlesticks"))
	require.NoError(t, err)
	assert.Len(t, f.transport.texts(), 1)
}
