// This file is part of gasguard-hwcheck.
//
// Copyright 2026 GasGuard
//
// This software is released under the GNU General Public License version 3,
// which covers the main part of gasguard-hwcheck.
// The terms of this license can be found at:
// https://www.gnu.org/licenses/gpl-3.0.en.html

package test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.bug.st/f"

	"github.com/gasguard/gasguard-hwcheck/cmd/feedback"
	"github.com/gasguard/gasguard-hwcheck/internal/config"
	"github.com/gasguard/gasguard-hwcheck/internal/gpio"
	"github.com/gasguard/gasguard-hwcheck/internal/hwtest"
	"github.com/gasguard/gasguard-hwcheck/pkg/tablestyle"
)

func NewTestCmd(cfg config.Configuration) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the full hardware acceptance sequence",
		Long: "Switches each status LED and the buzzer on and off in turn, then all " +
			"LEDs at once, so the operator can confirm the wiring by eye and ear.",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			testHandler(cmd.Context(), cfg, reportPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the results to this file as JSON")
	return cmd
}

func testHandler(ctx context.Context, cfg config.Configuration, reportPath string) {
	lock := flock.New(cfg.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("acquiring run lock %s: %s", lock.Path(), err), feedback.ErrGeneric)
	}
	if !locked {
		feedback.Fatal("another hardware check is already running", feedback.ErrGeneric)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("failed to release run lock", "path", lock.Path(), "error", err)
		}
	}()

	out, _, _ := feedback.OutputStreams()
	seq := &hwtest.Sequencer{
		Controller: gpio.New(),
		Chip:       cfg.Chip(),
		Consumer:   config.TestConsumer,
		Sleep:      time.Sleep,
		Report: func(format string, args ...any) {
			fmt.Fprintf(out, format+"\n", args...)
		},
	}

	fmt.Fprintf(out, "GasGuard hardware check on %s\n\n", cfg.Chip())
	results := seq.Run(ctx, hwtest.Pins{
		Green:  cfg.GreenLED(),
		Yellow: cfg.YellowLED(),
		Red:    cfg.RedLED(),
		Buzzer: cfg.Buzzer(),
	})
	fmt.Fprintln(out)

	if ctx.Err() != nil {
		feedback.Fatal("hardware check interrupted", feedback.ErrGeneric)
	}

	if reportPath != "" {
		if err := writeReport(reportPath, cfg.Chip(), results); err != nil {
			feedback.Fatal(fmt.Sprintf("writing report %s: %s", reportPath, err), feedback.ErrGeneric)
		}
	}

	res := testResult{Chip: cfg.Chip(), Results: results}
	failed := f.Filter(results, func(r hwtest.Result) bool { return !r.Passed })
	if len(failed) > 0 {
		code := feedback.ErrHardware
		for _, r := range failed {
			if errors.Is(r.Err, fs.ErrPermission) {
				feedback.Warnf("Permission denied while opening the GPIO device. Try running with sudo.")
				code = feedback.ErrPermission
				break
			}
		}
		feedback.FatalResult(res, code)
	}
	feedback.PrintResult(res)
}

func writeReport(path, chip string, results []hwtest.Result) error {
	report := struct {
		Chip    string          `json:"chip"`
		Results []hwtest.Result `json:"results"`
	}{Chip: chip, Results: results}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(data, '\n'), 0644)
}

type testResult struct {
	Chip    string          `json:"chip"`
	Results []hwtest.Result `json:"results"`
}

func (r testResult) String() string {
	pass := color.New(color.FgGreen).Sprint("PASS")
	fail := color.New(color.FgRed).Sprint("FAIL")

	t := table.NewWriter()
	t.SetStyle(tablestyle.CleanStyle)
	t.AppendHeader(table.Row{"STEP", "GPIO", "RESULT"})
	t.AppendRows(f.Map(r.Results, func(res hwtest.Result) table.Row {
		outcome := pass
		if !res.Passed {
			outcome = fail
		}
		return table.Row{res.Name, fmt.Sprint(res.Offsets), outcome}
	}))

	summary := "Hardware test complete. The board is ready for the monitoring server."
	if len(f.Filter(r.Results, func(res hwtest.Result) bool { return !res.Passed })) > 0 {
		summary = "Hardware test finished with failures."
	}
	return t.Render() + "\n\n" + summary
}

func (r testResult) Data() interface{} {
	return r
}

func (r testResult) ErrorString() string {
	var msg string
	for _, res := range r.Results {
		if !res.Passed {
			msg += fmt.Sprintf("%s (GPIO %v): %s\n", res.Name, res.Offsets, res.Error)
		}
	}
	return msg
}
