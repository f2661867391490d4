// This file is part of gasguard-hwcheck.
//
// Copyright 2026 GasGuard
//
// This software is released under the GNU General Public License version 3,
// which covers the main part of gasguard-hwcheck.
// The terms of this license can be found at:
// https://www.gnu.org/licenses/gpl-3.0.en.html

package set

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gasguard/gasguard-hwcheck/cmd/feedback"
	"github.com/gasguard/gasguard-hwcheck/internal/config"
	"github.com/gasguard/gasguard-hwcheck/internal/gpio"
	"github.com/gasguard/gasguard-hwcheck/internal/hwtest"
)

func NewSetCmd(cfg config.Configuration) *cobra.Command {
	return &cobra.Command{
		Use:     "set pin value",
		Short:   "Drive a single GPIO line to 0 or 1",
		Example: "  " + os.Args[0] + " set 17 1",
		Args:    cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			setHandler(cfg, args)
		},
	}
}

func setHandler(cfg config.Configuration, args []string) {
	pin, err := strconv.Atoi(args[0])
	if err != nil {
		feedback.Fatal("pin and value must be integers", feedback.ErrBadArgument)
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		feedback.Fatal("pin and value must be integers", feedback.ErrBadArgument)
	}
	if value != 0 && value != 1 {
		feedback.Fatal("value must be 0 or 1", feedback.ErrBadArgument)
	}

	seq := &hwtest.Sequencer{
		Controller: gpio.New(),
		Chip:       cfg.Chip(),
		Consumer:   config.SetConsumer,
		Sleep:      time.Sleep,
	}
	level := gpio.Inactive
	if value == 1 {
		level = gpio.Active
	}
	if err := seq.Set(pin, level); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			feedback.Fatal(fmt.Sprintf("setting GPIO %d: %s (try running with sudo)", pin, err), feedback.ErrPermission)
		}
		feedback.Fatal(fmt.Sprintf("setting GPIO %d: %s", pin, err), feedback.ErrHardware)
	}

	feedback.PrintResult(setResult{Pin: pin, Value: value})
}

type setResult struct {
	Pin   int `json:"pin"`
	Value int `json:"value"`
}

func (r setResult) String() string {
	return fmt.Sprintf("GPIO %d set to %d", r.Pin, r.Value)
}

func (r setResult) Data() interface{} {
	return r
}
