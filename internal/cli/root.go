// Package cli implements the welfare command line client. Every command loads
// the session state, applies one action and saves the state again.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"welfare-agent/internal/store"
)

// errReported marks failures whose user-facing message was already printed.
var errReported = errors.New("command failed")

type runner struct {
	open       Opener
	configPath string
}

// NewRootCommand builds the command tree. defaultConfigPath is used when
// --config is not given.
func NewRootCommand(open Opener, defaultConfigPath string) *cobra.Command {
	r := &runner{open: open}

	root := &cobra.Command{
		Use:   "welfare",
		Short: "Welfare benefit recommendations and counseling chat",
		Long: `welfare submits your profile to the welfare-agent server, shows the
recommended benefit programs and lets you ask follow-up questions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&r.configPath, "config", defaultConfigPath, "path to config.toml")

	root.AddCommand(
		r.initCmd(),
		r.profileCmd(),
		r.recommendCmd(),
		r.chatCmd(),
		r.historyCmd(),
		r.resetCmd(),
		r.healthCmd(),
	)
	return root
}

// Execute runs the root command and reports whether the error was already
// shown to the user.
func Execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		root.PrintErrln("Error:", err)
	}
	return err
}

func (r *runner) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			if err := SaveConfig(r.configPath, cfg); err != nil {
				return err
			}
			cmd.Printf("config written to %s\n", r.configPath)
			return nil
		},
	}
}

// withState loads the session state, runs fn and saves the state even when
// fn fails, so partial progress such as a recorded chat turn is kept.
func (r *runner) withState(cmd *cobra.Command, fn func(ctx context.Context, sess *Session, st *store.State) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := r.open(ctx, r.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	st, err := store.Load(ctx, sess.Persister, sess.SessionID)
	if err != nil {
		return err
	}
	runErr := fn(ctx, sess, st)
	if err := store.Save(ctx, sess.Persister, sess.SessionID, st); err != nil {
		return errors.Join(runErr, fmt.Errorf("saving state: %w", err))
	}
	return runErr
}
