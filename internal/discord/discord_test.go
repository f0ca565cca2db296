package discord

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/message/messagetest"
	"github.com/keshon/cmdcore/pkg/retrylimit"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []string
	replies int
	typing  int
	perms   int64
	fail    []error
}

func (f *fakeAPI) next() error {
	if len(f.fail) == 0 {
		return nil
	}
	err := f.fail[0]
	f.fail = f.fail[1:]
	return err
}

func (f *fakeAPI) ChannelMessageSend(_, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, content)
	return &discordgo.Message{Content: content}, nil
}

func (f *fakeAPI) ChannelMessageSendReply(_, content string, ref *discordgo.MessageReference, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return nil, err
	}
	if ref != nil {
		f.replies++
	}
	f.sent = append(f.sent, content)
	return &discordgo.Message{Content: content}, nil
}

func (f *fakeAPI) ChannelTyping(string, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return f.next()
}

func (f *fakeAPI) UserChannelPermissions(string, string, ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms, f.next()
}

func testBot(api API, state *discordgo.State) *Bot {
	b := newBot(api, state, zerolog.Nop())
	cfg := retrylimit.DefaultConfig()
	cfg.InitialDelay, cfg.RateLimitDelay, cfg.Jitter = time.Millisecond, time.Millisecond, false
	cfg.InitialRate, cfg.MaxRate = 1000, 1000
	cfg.Status = restStatus
	b.retry = retrylimit.New(cfg, zerolog.Nop())
	return b
}

func discordMsg(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   content,
		Author:    &discordgo.User{ID: "u1"},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func restError(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
}

func TestMessage_Accessors(t *testing.T) {
	b := testBot(&fakeAPI{}, nil)
	raw := discordMsg("!ping")
	m := b.wrap(raw, false)

	assert.Equal(t, "!ping", m.Content())
	assert.Equal(t, "u1", m.AuthorID())
	assert.False(t, m.AuthorIsBot())
	assert.False(t, m.Edited())
	assert.False(t, m.ChannelNSFW())
	assert.Same(t, raw, m.Raw())

	now := time.Now()
	raw.EditedTimestamp = &now
	assert.True(t, m.Edited())
	assert.Empty(t, b.wrap(&discordgo.Message{}, false).AuthorID())
}

func TestMessage_ReplyRetriesRateLimit(t *testing.T) {
	api := &fakeAPI{fail: []error{restError(http.StatusTooManyRequests)}}
	m := testBot(api, nil).wrap(discordMsg("!ping"), false)

	require.NoError(t, m.Reply(context.Background(), "pong"))
	assert.Equal(t, []string{"pong"}, api.sent)
	assert.Equal(t, 1, api.replies)
}

func TestMessage_ReplyStopsOnClientError(t *testing.T) {
	api := &fakeAPI{fail: []error{restError(http.StatusForbidden)}}
	m := testBot(api, nil).wrap(discordMsg("!ping"), false)

	err := m.Reply(context.Background(), "pong")
	require.Error(t, err)
	code, ok := restStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Empty(t, api.sent)
}

func TestMessage_LongReplyIsSplit(t *testing.T) {
	api := &fakeAPI{}
	m := testBot(api, nil).wrap(discordMsg("!say"), false)

	line := strings.Repeat("a", 1500) + "\n"
	require.NoError(t, m.Reply(context.Background(), line+line+"end"))
	require.Len(t, api.sent, 2)
	assert.Equal(t, line, api.sent[0])
	assert.Equal(t, line+"end", api.sent[1])
	assert.Equal(t, 1, api.replies, "only the first part is a reply")
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"short"}, chunk("short", 10))
	assert.Equal(t, []string{"ééééé", "ééééé", "é"}, chunk(strings.Repeat("é", 11), 5))
	assert.Equal(t, []string{"ab\ncd\n", "ef"}, chunk("ab\ncd\nef", 6))
}

func TestMessage_Typing(t *testing.T) {
	api := &fakeAPI{}
	m := testBot(api, nil).wrap(discordMsg("!ping"), false)
	require.NoError(t, m.Typing(context.Background()))
	assert.Equal(t, 1, api.typing)
}

func TestMissing(t *testing.T) {
	api := &fakeAPI{perms: discordgo.PermissionSendMessages}
	b := testBot(api, nil)
	m := b.wrap(discordMsg("!ban"), false)

	missing, err := b.Missing(context.Background(), m, "u1", discordgo.PermissionSendMessages|discordgo.PermissionBanMembers|discordgo.PermissionKickMembers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kick Members", "Ban Members"}, missing)

	api.perms = discordgo.PermissionAdministrator
	missing, err = b.Missing(context.Background(), m, "u1", discordgo.PermissionBanMembers)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = b.Missing(context.Background(), &messagetest.Message{}, "u1", discordgo.PermissionBanMembers)
	require.ErrorIs(t, err, errNotDiscord)
}

func TestRestStatus(t *testing.T) {
	_, ok := restStatus(errors.New("dial tcp: timeout"))
	assert.False(t, ok)
	code, ok := restStatus(restError(http.StatusBadGateway))
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestChannelNSFW(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "g1"}))
	require.NoError(t, state.ChannelAdd(&discordgo.Channel{ID: "c1", GuildID: "g1", NSFW: true}))
	require.NoError(t, state.ChannelAdd(&discordgo.Channel{ID: "t1", GuildID: "g1", ParentID: "c1", Type: discordgo.ChannelTypeGuildPublicThread}))

	b := testBot(&fakeAPI{}, state)
	assert.True(t, b.channelNSFW("c1"))
	assert.True(t, b.channelNSFW("t1"), "threads inherit from their parent")
	assert.False(t, b.channelNSFW("unknown"))
}

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []message.Message
}

func (d *recordingDispatcher) Handle(_ context.Context, m message.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, m)
	return true
}

func TestDispatch(t *testing.T) {
	b := testBot(&fakeAPI{}, nil)
	d := &recordingDispatcher{}
	b.handler = d

	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: discordMsg("!ping")})
	b.onMessageUpdate(nil, &discordgo.MessageUpdate{Message: &discordgo.Message{ID: "m2"}})
	b.onMessageUpdate(nil, &discordgo.MessageUpdate{Message: discordMsg("!pong")})
	b.wg.Wait()

	require.Len(t, d.msgs, 2)
	var edited message.Message
	for _, m := range d.msgs {
		if m.Content() == "!pong" {
			edited = m
		}
	}
	require.NotNil(t, edited)
	assert.True(t, edited.Edited())
}

func TestDispatch_StopsAfterShutdown(t *testing.T) {
	b := testBot(&fakeAPI{}, nil)
	d := &recordingDispatcher{}
	ctx, cancel := context.WithCancel(context.Background())
	b.ctx, b.handler = ctx, d

	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: discordMsg("!ping")})
	cancel()
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: discordMsg("!late")})
	b.drain()
	b.ctx = context.Background()
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: discordMsg("!closed")})
	b.wg.Wait()

	require.Len(t, d.msgs, 1)
	assert.Equal(t, "!ping", d.msgs[0].Content())
}

func TestSelfID(t *testing.T) {
	b := testBot(&fakeAPI{}, nil)
	assert.Empty(t, b.SelfID())
	b.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot", Username: "cmdcore"}})
	assert.Equal(t, "bot", b.SelfID())
}
