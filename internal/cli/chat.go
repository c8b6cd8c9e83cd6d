package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odochat/odochat/internal/transcript"
	"github.com/odochat/odochat/internal/transport"
)

func newChatCmd() *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			attachRenderer(a)

			sessionID, err := a.manager.Start(a.defaultMode())
			if err != nil {
				return err
			}

			if !noHistory {
				if err := a.history.Seed(ctx, sessionID, a.store, a.router); err != nil {
					a.log.Warn().Err(err).Msg("history seed failed, starting empty")
				}
			}

			go a.router.Run(ctx, a.trans.Events())

			_, mode := a.manager.Current()
			fmt.Printf("session %s (%s mode), commands: /new, /mode agent|ask, /quit\n", sessionID, mode)
			return repl(ctx, a)
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip seeding the transcript from server history")
	return cmd
}

// attachRenderer hooks a minimal line renderer onto transcript changes and
// archives finalized turns. Display is intentionally dumb: the transcript
// store is the source of truth, this just prints it.
func attachRenderer(a *app) {
	a.store.OnChange(func(c transcript.Change) {
		if c.Turn == nil {
			return
		}
		t := *c.Turn

		switch c.Op {
		case transcript.OpFinalize:
			printAgentTurn(t)
			a.archiveTurn(t)
		case transcript.OpAppend:
			switch {
			case t.Role == transcript.RoleTool && len(t.ToolCalls) > 0:
				fmt.Printf("[tool %s] %s\n", t.ToolCalls[0].Name, t.Content)
				a.archiveTurn(t)
			case t.Role == transcript.RoleAgent && t.Status == transcript.StatusFinal:
				printAgentTurn(t)
				a.archiveTurn(t)
			case t.Role == transcript.RoleUser:
				a.archiveTurn(t)
			}
		case transcript.OpToolResult:
			for _, tc := range t.ToolCalls {
				if tc.Result != nil {
					fmt.Printf("[tool %s: %s]\n", tc.Name, tc.Status)
				}
			}
		}
	})
}

func printAgentTurn(t transcript.Turn) {
	if t.Content != "" {
		fmt.Printf("agent> %s\n", t.Content)
	}
	if t.Usage != nil {
		fmt.Printf("       (%d tokens)\n", t.Usage.TotalTokens)
	}
}

func (a *app) archiveTurn(t transcript.Turn) {
	id, _ := a.manager.Current()
	if err := a.archive.Record(id, t); err != nil {
		a.log.Warn().Err(err).Str("turnId", t.ID).Msg("archive write failed")
	}
}

func repl(ctx context.Context, a *app) error {
	lines := make(chan string)
	scanner := bufio.NewScanner(os.Stdin)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "/") {
				if quit := runReplCommand(a, line); quit {
					return nil
				}
				continue
			}
			if err := a.manager.Send(line); err != nil {
				if errors.Is(err, transport.ErrNotConnected) {
					fmt.Println("not connected, message not sent; try again")
					continue
				}
				fmt.Printf("send failed: %v\n", err)
			}
		}
	}
}

func runReplCommand(a *app, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/new":
		id, err := a.manager.NewChat()
		if err != nil {
			fmt.Printf("new chat failed: %v\n", err)
			return false
		}
		fmt.Printf("new session %s\n", id)
	case "/mode":
		if len(fields) != 2 {
			fmt.Println("usage: /mode agent|ask")
			return false
		}
		mode, err := transport.ParseMode(fields[1])
		if err != nil {
			fmt.Println(err)
			return false
		}
		if err := a.manager.SetMode(mode); err != nil {
			fmt.Printf("mode switch failed: %v\n", err)
			return false
		}
		fmt.Printf("switched to %s mode\n", mode)
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}
