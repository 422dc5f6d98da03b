package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"matchserver/config"
)

const releaseVersion = "0.1.0"

// newCmd wires cfg's fields to CLI flags and MATCHSERVER_* environment
// variables, in that order of precedence over whatever config.Load()
// already populated from config.json.
func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MATCHSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "matchserver",
		Short:         "TCP matchmaking and arbitration server for Morpion and Mastermind.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfig(cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: MATCHSERVER_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: MATCHSERVER_PORT)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string; empty disables persistence (env: MATCHSERVER_DATABASE_URL)")
	fs.IntVar(&cfg.CodeLength, "code-length", cfg.CodeLength, "Mastermind secret code length (env: MATCHSERVER_CODE_LENGTH)")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Mastermind max guesses per player (env: MATCHSERVER_MAX_ATTEMPTS)")
	fs.IntVar(&cfg.BaseRating, "base-rating", cfg.BaseRating, "starting ELO rating for new players (env: MATCHSERVER_BASE_RATING)")
	fs.IntVar(&cfg.MaxLineBytes, "max-line-bytes", cfg.MaxLineBytes, "maximum accepted wire frame size in bytes (env: MATCHSERVER_MAX_LINE_BYTES)")
	fs.IntVar(&cfg.MailboxDepth, "mailbox-depth", cfg.MailboxDepth, "per-participant outbound mailbox buffer depth (env: MATCHSERVER_MAILBOX_DEPTH)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceUsage = true

	return cmd
}

func validateConfig(cfg *config.Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", cfg.Port)
	}
	if cfg.CodeLength < 1 {
		return fmt.Errorf("invalid code length: %d", cfg.CodeLength)
	}
	if len(cfg.Colors) < cfg.CodeLength {
		return fmt.Errorf("colors alphabet (%d) smaller than code length (%d)", len(cfg.Colors), cfg.CodeLength)
	}
	return nil
}
