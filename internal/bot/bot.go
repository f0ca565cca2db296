package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/cmdcore/internal/commands"
	"github.com/keshon/cmdcore/internal/config"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/handler"
	"github.com/keshon/cmdcore/pkg/invocation"
	"github.com/keshon/cmdcore/pkg/message"
)

// Transport is what a chat adapter contributes to the handler.
type Transport struct {
	Permissions message.PermissionChecker
	SelfID      func() string
}

// NewHandler builds a handler with the built-in commands registered and the
// feedback listeners attached.
func NewHandler(cfg *config.Config, log zerolog.Logger, tr Transport) (*handler.Handler, error) {
	overrides, err := config.LoadOverrides(cfg.CommandsFile)
	if err != nil {
		return nil, err
	}

	reg := cmd.NewRegistry(cmd.Options{AliasReplacement: regexp.MustCompile(`-`)})
	if err := commands.RegisterAll(reg, overrides); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}

	defaults := commands.PromptDefaults
	defaults.Time = cfg.PromptTimeout

	h := handler.New(handler.Options{
		Registry:    reg,
		Permissions: tr.Permissions,
		Prefix:      invocation.Static(cfg.Prefixes...),
		AllowMention: func(context.Context, message.Message) bool {
			return cfg.AllowMention
		},
		SelfID:           tr.SelfID,
		NoBlockBots:      !cfg.BlockBots,
		Owners:           cfg.Owners,
		SuperUsers:       cfg.SuperUsers,
		DefaultCooldown:  cfg.DefaultCooldown,
		ArgumentDefaults: defaults,
		HandleEdits:      cfg.HandleEdits,
		Middlewares:      []cmd.Middleware{Timing},
		Logger:           &log,
	})
	Attach(h, log)

	if c := overrides.Apply(locksCommand(h)); c != nil {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register commands: %w", err)
		}
	}
	return h, nil
}

// locksCommand reports the held locks of every locking command. It lives
// here because it needs the handler.
func locksCommand(h *handler.Handler) *cmd.Command {
	return &cmd.Command{
		ID:          "locks",
		Aliases:     []string{"locks"},
		Description: "Show which command locks are held.",
		Category:    "Owner",
		OwnerOnly:   true,
		Exec: func(ctx context.Context, m message.Message, _ any) (any, error) {
			var sb strings.Builder
			for _, c := range h.Registry().All() {
				if c.LockBy == "" && c.LockFunc == nil {
					continue
				}
				fmt.Fprintf(&sb, "**%s**: %s\n", c.ID, h.Locks(c.ID).Status())
			}
			if sb.Len() == 0 {
				return nil, m.Reply(ctx, "No command uses locks.")
			}
			return nil, m.Reply(ctx, strings.TrimSuffix(sb.String(), "\n"))
		},
	}
}

// Timing logs how long each command took, using the logger the handler puts
// on the context.
func Timing(next cmd.ExecFunc) cmd.ExecFunc {
	return func(ctx context.Context, m message.Message, args any) (any, error) {
		start := time.Now()
		res, err := next(ctx, m, args)
		zerolog.Ctx(ctx).Debug().Dur("took", time.Since(start)).Err(err).Msg("command executed")
		return res, err
	}
}
