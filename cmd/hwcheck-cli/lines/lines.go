// This file is part of gasguard-hwcheck.
//
// Copyright 2026 GasGuard
//
// This software is released under the GNU General Public License version 3,
// which covers the main part of gasguard-hwcheck.
// The terms of this license can be found at:
// https://www.gnu.org/licenses/gpl-3.0.en.html

package lines

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/warthog618/go-gpiocdev"
	"go.bug.st/f"

	"github.com/gasguard/gasguard-hwcheck/cmd/feedback"
	"github.com/gasguard/gasguard-hwcheck/internal/config"
	"github.com/gasguard/gasguard-hwcheck/pkg/tablestyle"
)

func NewLinesCmd(cfg config.Configuration) *cobra.Command {
	return &cobra.Command{
		Use:   "lines",
		Short: "List the chip's lines, their direction and current owners",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			linesHandler(cfg)
		},
	}
}

func linesHandler(cfg config.Configuration) {
	chip, err := gpiocdev.NewChip(cfg.Chip())
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			feedback.Fatal(fmt.Sprintf("opening %s: %s (try running with sudo)", cfg.Chip(), err), feedback.ErrPermission)
		}
		feedback.Fatal(fmt.Sprintf("opening %s: %s", cfg.Chip(), err), feedback.ErrGeneric)
	}
	defer chip.Close()

	infos := make([]gpiocdev.LineInfo, 0, chip.Lines())
	for offset := 0; offset < chip.Lines(); offset++ {
		info, err := chip.LineInfo(offset)
		if err != nil {
			feedback.Fatal(fmt.Sprintf("reading line %d on %s: %s", offset, cfg.Chip(), err), feedback.ErrGeneric)
		}
		infos = append(infos, info)
	}

	feedback.PrintResult(linesResult{
		Chip:  chip.Name,
		Label: chip.Label,
		Lines: f.Map(infos, toLineInfo),
	})
}

type lineInfo struct {
	Offset   int    `json:"offset"`
	Name     string `json:"name,omitempty"`
	Used     bool   `json:"used"`
	Output   bool   `json:"output"`
	Consumer string `json:"consumer,omitempty"`
}

func toLineInfo(info gpiocdev.LineInfo) lineInfo {
	return lineInfo{
		Offset:   info.Offset,
		Name:     info.Name,
		Used:     info.Used,
		Output:   info.Config.Direction == gpiocdev.LineDirectionOutput,
		Consumer: info.Consumer,
	}
}

type linesResult struct {
	Chip  string     `json:"chip"`
	Label string     `json:"label,omitempty"`
	Lines []lineInfo `json:"lines"`
}

func (r linesResult) String() string {
	t := table.NewWriter()
	t.SetStyle(tablestyle.CleanStyle)
	t.AppendHeader(table.Row{"OFFSET", "NAME", "DIRECTION", "USED", "CONSUMER"})

	for _, l := range r.Lines {
		direction := "input"
		if l.Output {
			direction = "output"
		}
		t.AppendRow(table.Row{l.Offset, l.Name, direction, l.Used, l.Consumer})
	}
	return t.Render()
}

func (r linesResult) Data() interface{} {
	return r
}
