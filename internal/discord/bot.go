// Package discord connects the command handler to a Discord gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/retrylimit"
)

// API is the part of *discordgo.Session the adapter calls.
type API interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, options ...discordgo.RequestOption) (int64, error)
}

// Dispatcher handles one message. *handler.Handler implements it.
type Dispatcher interface {
	Handle(ctx context.Context, m message.Message) bool
}

// Bot is a Discord bot
type Bot struct {
	dg    *discordgo.Session
	api   API
	state *discordgo.State
	retry *retrylimit.Retrier
	log   zerolog.Logger

	self atomic.Pointer[string]

	mu      sync.Mutex
	ctx     context.Context
	handler Dispatcher
	closed  bool
	wg      sync.WaitGroup
}

// New creates the gateway session without connecting it.
func New(token string, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := newBot(dg, dg.State, log)
	b.dg = dg
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onMessageUpdate)
	return b, nil
}

func newBot(api API, state *discordgo.State, log zerolog.Logger) *Bot {
	log = log.With().Str("component", "discord").Logger()
	cfg := retrylimit.DefaultConfig()
	cfg.Status = restStatus
	return &Bot{
		api:   api,
		state: state,
		retry: retrylimit.New(cfg, log),
		log:   log,
		ctx:   context.Background(),
	}
}

// SelfID is the bot user's ID once the gateway is ready.
func (b *Bot) SelfID() string {
	if id := b.self.Load(); id != nil {
		return *id
	}
	return ""
}

// Run connects, feeds every message to h and blocks until ctx ends. In-flight
// commands are waited for before returning.
func (b *Bot) Run(ctx context.Context, h Dispatcher) error {
	if b.dg == nil {
		return errors.New("bot has no gateway session")
	}
	b.mu.Lock()
	b.ctx, b.handler = ctx, h
	b.mu.Unlock()

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("❎ Shutdown signal received. Cleaning up...")
	err := b.dg.Close()
	b.drain()
	return err
}

// drain stops dispatching and waits for in-flight messages.
func (b *Bot) drain() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	id := r.User.ID
	b.self.Store(&id)
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("✅ Discord bot is running")
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, ev *discordgo.MessageCreate) {
	b.dispatch(ev.Message, false)
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, ev *discordgo.MessageUpdate) {
	// Embed unfurls arrive as updates without content or author.
	if ev.Message == nil || ev.Author == nil {
		return
	}
	b.dispatch(ev.Message, true)
}

// dispatch handles msg on its own goroutine so prompts can wait for later
// messages.
// Messages arriving after shutdown began are dropped.
func (b *Bot) dispatch(msg *discordgo.Message, edited bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler == nil || b.closed || b.ctx.Err() != nil {
		return
	}
	ctx, h, m := b.ctx, b.handler, b.wrap(msg, edited)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		h.Handle(ctx, m)
	}()
}

func (b *Bot) wrap(msg *discordgo.Message, edited bool) *Message {
	return &Message{msg: msg, edited: edited, bot: b}
}

func (b *Bot) channelNSFW(channelID string) bool {
	if b.state == nil {
		return false
	}
	ch, err := b.state.Channel(channelID)
	if err != nil {
		return false
	}
	if ch.IsThread() && ch.ParentID != "" {
		if parent, err := b.state.Channel(ch.ParentID); err == nil {
			return parent.NSFW
		}
	}
	return ch.NSFW
}

func restStatus(err error) (int, bool) {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode, true
	}
	return 0, false
}
