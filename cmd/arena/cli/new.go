package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"arena/internal/display"
	"arena/internal/player"
	"arena/internal/profile"
)

func newNewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create engine and player profiles",
	}
	cmd.AddCommand(newBotCmd(a), newPlayerCmd(a))
	return cmd
}

func newBotCmd(a *app) *cobra.Command {
	var (
		dir  string
		wait time.Duration
		log  bool
	)

	cmd := &cobra.Command{
		Use:   "bot <engine> [-- engine args...]",
		Short: "Write a profile for a UCI engine",
		Long: `Starts the engine, records the identity and options it declares and
writes them to <name>.toml. Options are written commented out with their
defaults; uncomment a line to have it applied whenever the engine plays.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			settings := a.settings()
			settings.Drain = wait
			details, err := player.Discover(path, args[1:], settings)
			if err != nil {
				return err
			}

			name := details.Identity.Name
			if name == "" {
				name = filepath.Base(path)
				a.log.Warn("Engine did not report a name, using its file name", "name", name)
			}
			meta := profile.EngineMetadata{
				Name:    name,
				Author:  details.Identity.Author,
				Command: append([]string{path}, args[1:]...),
				Log:     log,
			}

			content, err := profile.RenderEngine(meta, details.Options)
			if err != nil {
				return err
			}
			created, err := profile.Create(dir, name, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s with %d options\n", created, details.Options.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory the profile is written to")
	cmd.Flags().DurationVar(&wait, "wait", time.Second, "how long to wait for the engine to finish declaring options")
	cmd.Flags().BoolVar(&log, "log", false, "keep the engine's stderr in <engine>.log when it plays")
	return cmd
}

func newPlayerCmd(a *app) *cobra.Command {
	var (
		dir   string
		human profile.PlayerMetadata
	)

	cmd := &cobra.Command{
		Use:   "player",
		Short: "Write a profile for a human player",
		Long:  `Prompts for the player's name, title and rating unless --name is given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if human.Name == "" {
				var err error
				if human, err = a.promptPlayer(); err != nil {
					return err
				}
			}
			human.Title = profile.NormalizeTitle(human.Title)

			content, err := profile.RenderPlayer(profile.PlayerProfile{Human: human})
			if err != nil {
				return err
			}
			created, err := profile.Create(dir, human.Name, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s\n", created)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "directory the profile is written to")
	f.StringVar(&human.Name, "name", "", "player name")
	f.StringVar(&human.Title, "title", "", "FIDE title: "+strings.Join(profile.Titles, ", "))
	f.IntVar(&human.Elo, "elo", 0, "rating")
	return cmd
}

func (a *app) promptPlayer() (profile.PlayerMetadata, error) {
	var p profile.PlayerMetadata

	rl, err := readline.NewEx(&readline.Config{
		Stdin:           a.in,
		Stdout:          a.out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return p, err
	}
	defer rl.Close()

	ask := func(prompt string) (string, error) {
		rl.SetPrompt(display.Prompt(prompt))
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return "", errors.New("aborted")
		}
		return strings.TrimSpace(line), err
	}

	for p.Name == "" {
		if p.Name, err = ask("Name"); err != nil {
			return p, err
		}
	}

	if p.Title, err = ask("Title (" + strings.Join(profile.Titles, "/") + ", empty for none)"); err != nil {
		return p, err
	}
	if p.Title != "" && profile.NormalizeTitle(p.Title) == "" {
		fmt.Fprintf(a.out, "Unknown title %q ignored\n", p.Title)
	}

	for {
		elo, err := ask("Elo (empty for none)")
		if err != nil {
			return p, err
		}
		if elo == "" {
			return p, nil
		}
		if n, err := strconv.Atoi(elo); err == nil && n >= 0 && n <= 4000 {
			p.Elo = n
			return p, nil
		}
		fmt.Fprintln(a.out, "Elo must be a number between 0 and 4000")
	}
}
