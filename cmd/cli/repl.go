package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/keshon/cmdcore/internal/bot"
	"github.com/keshon/cmdcore/internal/config"
	"github.com/keshon/cmdcore/internal/console"
	"github.com/keshon/cmdcore/internal/logging"
	"github.com/keshon/cmdcore/pkg/handler"
)

const (
	commandPrompt = "> "
	answerPrompt  = "? "
)

type replOptions struct {
	user     string
	owner    bool
	dm       bool
	nsfw     bool
	logLevel string
}

func newReplCmd() *cobra.Command {
	var opts replOptions
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Read messages from the terminal and run them through the handler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.user, "user", "u", "local", "author ID of typed messages")
	cmd.Flags().BoolVar(&opts.owner, "owner", true, "treat the user as a bot owner")
	cmd.Flags().BoolVar(&opts.dm, "dm", false, "send messages as direct messages")
	cmd.Flags().BoolVar(&opts.nsfw, "nsfw", false, "mark the channel as NSFW")
	cmd.Flags().StringVarP(&opts.logLevel, "log-level", "l", "warn", "log level")
	return cmd
}

func runRepl(ctx context.Context, opts replOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, closer := logging.Setup(logging.Options{Level: opts.logLevel, File: cfg.LogFile})
	defer closer.Close()

	if opts.owner {
		cfg.Owners = append(cfg.Owners, opts.user)
	}
	h, err := bot.NewHandler(cfg, logger, bot.Transport{SelfID: func() string { return "cmdcore" }})
	if err != nil {
		return err
	}
	defer h.Stop()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          commandPrompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".cmdcore_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		return simpleRepl(ctx, stop, h, newSession(os.Stdout, opts))
	}
	defer rl.Close()

	session := newSession(rl.Stdout(), opts)
	fmt.Fprintf(rl.Stdout(), "Prefixes: %s  (Ctrl+C to exit)\n", strings.Join(cfg.Prefixes, " "))

	var wg sync.WaitGroup
	defer wg.Wait()
	defer stop()
	for {
		if h.Waiting(session.Message("")) {
			rl.SetPrompt(answerPrompt)
		} else {
			rl.SetPrompt(commandPrompt)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("Goodbye!")
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		dispatch(ctx, h, session, line, &wg)
	}
}

func simpleRepl(ctx context.Context, stop func(), h *handler.Handler, session *console.Session) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	defer stop()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(commandPrompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}
		dispatch(ctx, h, session, line, &wg)
	}
}

// dispatch handles each line on its own goroutine so an argument prompt can
// read the following lines.
func dispatch(ctx context.Context, h *handler.Handler, session *console.Session, line string, wg *sync.WaitGroup) {
	m := session.Message(line)
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.Handle(ctx, m)
	}()
}

func newSession(out io.Writer, opts replOptions) *console.Session {
	s := console.NewSession(out, opts.user)
	if opts.dm {
		s.GuildID = ""
	}
	s.NSFW = opts.nsfw
	return s
}
