// This file is part of gasguard-hwcheck.
//
// Copyright 2026 GasGuard
//
// This software is released under the GNU General Public License version 3,
// which covers the main part of gasguard-hwcheck.
// The terms of this license can be found at:
// https://www.gnu.org/licenses/gpl-3.0.en.html

package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gasguard/gasguard-hwcheck/cmd/feedback"
)

const ProgramName = "GasGuard Hardware Check"

func NewVersionCmd(clientVersion string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + ProgramName,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			feedback.PrintResult(versionResult{
				Name:    ProgramName,
				Version: clientVersion,
			})
		},
	}
}

type versionResult struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (r versionResult) String() string {
	return fmt.Sprintf("%s version %s", ProgramName, r.Version)
}

func (r versionResult) Data() interface{} {
	return r
}
