// Package tablestyle holds the table rendering style shared by the
// commands that print tabular output.
package tablestyle

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	CleanStyle = table.Style{
		Name: "Clean",
		Box:  table.BoxStyle{PaddingRight: " "},
		Format: table.FormatOptions{
			Footer: text.FormatUpper,
			Header: text.FormatUpper,
			Row:    text.FormatDefault,
		},
		Options: table.Options{
			DrawBorder:      false,
			SeparateColumns: true,
			SeparateFooter:  false,
			SeparateHeader:  false,
			SeparateRows:    false,
		},
	}
)
