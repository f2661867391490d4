// This file is part of gasguard-hwcheck.
//
// Copyright 2026 GasGuard
//
// This software is released under the GNU General Public License version 3,
// which covers the main part of gasguard-hwcheck.
// The terms of this license can be found at:
// https://www.gnu.org/licenses/gpl-3.0.en.html

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.bug.st/cleanup"

	"github.com/gasguard/gasguard-hwcheck/cmd/feedback"
	"github.com/gasguard/gasguard-hwcheck/cmd/hwcheck-cli/completion"
	"github.com/gasguard/gasguard-hwcheck/cmd/hwcheck-cli/lines"
	"github.com/gasguard/gasguard-hwcheck/cmd/hwcheck-cli/set"
	hwtestcmd "github.com/gasguard/gasguard-hwcheck/cmd/hwcheck-cli/test"
	"github.com/gasguard/gasguard-hwcheck/cmd/hwcheck-cli/version"
	"github.com/gasguard/gasguard-hwcheck/internal/config"
)

// Version will be set a build time with -ldflags
var Version string = "0.0.0-dev"
var format string
var logLevelStr string

func run(configuration config.Configuration) error {
	rootCmd := &cobra.Command{
		Use:   "hwcheck-cli",
		Short: "A CLI to exercise the GasGuard board's LEDs and buzzer",
		Long: "Drives the status LEDs and the buzzer on the GPIO controller, " +
			"to verify the wiring before the monitoring server is started.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			format, ok := feedback.ParseOutputFormat(format)
			if !ok {
				feedback.Fatal(fmt.Sprintf("Invalid output format: %s", format), feedback.ErrBadArgument)
			}
			feedback.SetFormat(format)

			logLevel, err := ParseLogLevel(logLevelStr)
			if err != nil {
				feedback.FatalError(err, feedback.ErrBadArgument)
			}
			slog.SetLogLoggerLevel(logLevel)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logLevelStr, "log-level", "error", "Set the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		hwtestcmd.NewTestCmd(configuration),
		set.NewSetCmd(configuration),
		lines.NewLinesCmd(configuration),
		completion.NewCompletionCommand(),
		version.NewVersionCmd(Version),
	)

	ctx := context.Background()
	ctx, _ = cleanup.InterruptableContext(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return err
	}

	return nil
}

func main() {
	configuration, err := config.NewFromEnv()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("invalid config: %s", err), feedback.ErrGeneric)
	}

	if err := run(configuration); err != nil {
		feedback.FatalError(err, feedback.ErrGeneric)
	}
}

func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return l, nil
}
