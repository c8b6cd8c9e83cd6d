package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odochat/odochat/internal/store"
	"github.com/odochat/odochat/internal/transcript"
)

func newHistoryCmd() *cobra.Command {
	var (
		local    bool
		sessions bool
	)

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show a session's transcript",
		Long: "Show a session's transcript. By default the backend history endpoint is\n" +
			"queried and replayed through the same classification path as live traffic;\n" +
			"with --local the locally archived turns are shown instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.db.Close()

			if sessions {
				return printSessions(a.archive)
			}

			sessionID := ""
			if len(args) == 1 {
				sessionID = args[0]
			} else {
				sessionID, _, err = store.NewStateStore(a.db).LoadState()
				if err != nil {
					return err
				}
				if sessionID == "" {
					return fmt.Errorf("no active session; pass a session id")
				}
			}

			if local {
				turns, err := a.archive.List(sessionID)
				if err != nil {
					return err
				}
				printTurns(turns)
				return nil
			}

			if err := a.history.Seed(cmd.Context(), sessionID, a.store, a.router); err != nil {
				return err
			}
			printTurns(a.store.Snapshot())
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "read the local archive instead of the backend")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "list locally archived session ids")
	return cmd
}

func printSessions(archive *store.Archive) error {
	ids, err := archive.Sessions()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func printTurns(turns []transcript.Turn) {
	for _, t := range turns {
		switch t.Role {
		case transcript.RoleUser:
			fmt.Printf("you>   %s\n", t.Content)
		case transcript.RoleTool:
			name := ""
			if len(t.ToolCalls) > 0 {
				name = t.ToolCalls[0].Name
			}
			fmt.Printf("[tool %s] %s\n", name, t.Content)
		default:
			printAgentTurn(t)
			for _, tc := range t.ToolCalls {
				fmt.Printf("       [tool %s: %s]\n", tc.Name, tc.Status)
			}
		}
	}
}
