// Package cli holds the arena command tree.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"arena/internal/config"
	"arena/internal/logging"
	"arena/internal/player"
)

// app carries what every command needs once the root has run.
type app struct {
	v         *viper.Viper
	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
	out       io.Writer
	in        io.ReadCloser
}

func (a *app) settings() player.Settings {
	return player.Settings{
		Drain:        a.cfg.Engine.Drain,
		ReadyTimeout: a.cfg.Engine.ReadyTimeout,
		Logger:       a.log,
	}
}

// close releases the log file opened by setup, if any.
func (a *app) close() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

// newRootCmd builds the command tree. The caller closes the app once the
// command has run, whether or not it failed.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New(), out: os.Stdout, in: os.Stdin}

	root := &cobra.Command{
		Use:   "arena",
		Short: "Play UCI chess engines against each other",
		Long: `Arena starts UCI chess engines from TOML profiles, negotiates their
options and referees timed matches between them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is ./arena.yaml or "+config.ConfigDir()+"/arena.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write the log to this file instead of stderr")
	flags.Bool("log-json", false, "log as JSON")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.file", flags.Lookup("log-file"))
	_ = a.v.BindPFlag("log.json", flags.Lookup("log-json"))

	root.AddCommand(
		newFaceoffCmd(a),
		newNewCmd(a),
		newDBCmd(a),
		newServeCmd(a),
		newRemoteCmd(a),
	)
	return root, a
}

// Execute runs the root command
func Execute() error {
	root, a := newRootCmd()
	err := root.Execute()
	return errors.Join(err, a.close())
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	if in, ok := cmd.InOrStdin().(io.ReadCloser); ok {
		a.in = in
	} else {
		a.in = io.NopCloser(cmd.InOrStdin())
	}

	file, _ := cmd.Flags().GetString("config")
	if err := config.Init(a.v, file); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, closer, err := logging.Open(cfg.Log.File, cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}
	a.log = log
	a.logCloser = closer
	return nil
}
