package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odochat/odochat/internal/transcript"
	"github.com/odochat/odochat/internal/transport"
)

func newSendCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a single message and print the agent's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			// Resolves once the first agent or tool turn settles after the send.
			done := make(chan transcript.Turn, 8)
			a.store.OnChange(func(c transcript.Change) {
				if c.Turn == nil || c.Turn.Role == transcript.RoleUser {
					return
				}
				if c.Op == transcript.OpFinalize ||
					(c.Op == transcript.OpAppend && c.Turn.Status != transcript.StatusStreaming) {
					select {
					case done <- *c.Turn:
					default:
					}
				}
			})

			if _, err := a.manager.Start(a.defaultMode()); err != nil {
				return err
			}
			go a.router.Run(ctx, a.trans.Events())

			if err := waitConnected(ctx, a); err != nil {
				return err
			}
			if err := a.manager.Send(strings.Join(args, " ")); err != nil {
				return err
			}

			select {
			case turn := <-done:
				if turn.Content != "" {
					fmt.Println(turn.Content)
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("timed out after %s waiting for a reply", timeout)
			}
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "how long to wait for the reply")
	return cmd
}

// waitConnected blocks until the transport reports connected, so the one-shot
// send does not race the initial dial.
func waitConnected(ctx context.Context, a *app) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if a.trans.State() == transport.StateConnected {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connecting to %s: %w", a.cfg.Server.WSURL, ctx.Err())
		case <-ticker.C:
		}
	}
}
