package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/core"
	"arena/internal/display"
	"arena/internal/storage"
)

func newDBCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the match database",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "database file path (default from storage.path)")

	open := func() (*storage.Store, error) {
		if path == "" {
			path = a.cfg.Storage.Path
		}
		if path == "" {
			return nil, errors.New("database path required")
		}
		return storage.NewStore(path, a.log)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the database schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.InitDB(); err != nil {
					return fmt.Errorf("failed to initialize database: %w", err)
				}
				fmt.Fprintf(a.out, "Database initialized at: %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Delete the database file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				if err := store.DeleteDB(); err != nil {
					return fmt.Errorf("failed to delete database: %w", err)
				}
				fmt.Fprintf(a.out, "Database deleted: %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <match-id>",
			Short: "Remove a match and its moves",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()
				found, err := store.DeleteMatch(args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("match %s not found", args[0])
				}
				fmt.Fprintf(a.out, "Match removed: %s\n", args[0])
				return nil
			},
		},
		newQueryCmd(a, open),
	)
	return cmd
}

func newQueryCmd(a *app, open func() (*storage.Store, error)) *cobra.Command {
	var (
		matchID, playerName string
		moves, asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List recorded matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			matches, err := store.QueryMatches(matchID, playerName)
			if err != nil {
				return err
			}

			if asJSON {
				return display.PrettyPrintJSON(a.out, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(a.out, "No matches found")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Match ID\tWhite\tBlack\tResult\tReason\tStart Time")
			fmt.Fprintln(w, strings.Repeat("-", 80))
			for _, m := range matches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(m.MatchID),
					m.WhiteName,
					m.BlackName,
					core.ParseState(m.State).Score(),
					m.Reason,
					m.StartTimeUTC.Format("2006-01-02 15:04:05"),
				)
			}
			w.Flush()
			fmt.Fprintf(a.out, "\nFound %d match(es)\n", len(matches))

			if moves && len(matches) == 1 {
				return printMoves(a, store, matches[0].MatchID)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&matchID, "match", "", "match ID to filter (optional, * for all)")
	f.StringVar(&playerName, "player", "", "engine name to filter (optional, * for all)")
	f.BoolVar(&moves, "moves", false, "also list the moves when a single match is found")
	f.BoolVar(&asJSON, "json", false, "print the records as JSON")
	return cmd
}

func printMoves(a *app, store *storage.Store, matchID string) error {
	moves, err := store.QueryMoves(matchID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Ply\tSide\tMove\tPonder\tTime")
	for _, m := range moves {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", m.Ply, m.PlayerColor, m.MoveUCI, m.Ponder, time.Duration(m.ElapsedMs)*time.Millisecond)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
