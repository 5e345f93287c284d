package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"oskim/internal/layout"
)

// RowsCmd prints the padding keys of every row of one level.
type RowsCmd struct {
	Level     int  `arg:"" help:"Keyboard level (0-5)."`
	TotalRows int  `name:"total" default:"4" help:"Number of rows in the keyboard."`
	JSON      bool `help:"Print rows as JSON."`
}

// Run is called by Kong when the rows command is executed.
func (r *RowsCmd) Run() error {
	return r.print(os.Stdout)
}

func (r *RowsCmd) print(w io.Writer) error {
	lvl := layout.Level(r.Level)
	if !lvl.Valid() {
		return fmt.Errorf("level %d out of range", r.Level)
	}
	if r.TotalRows < 1 {
		return fmt.Errorf("total rows must be positive")
	}

	type row struct {
		Row  int                    `json:"row"`
		Pre  []layout.KeyDescriptor `json:"pre"`
		Post []layout.KeyDescriptor `json:"post"`
	}
	var out []row
	for i := 0; i < r.TotalRows; i++ {
		pre, post, ok := layout.RowsForLevel(lvl, i, r.TotalRows)
		if !ok {
			continue
		}
		out = append(out, row{Row: i, Pre: pre, Post: post})
	}

	if r.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, rw := range out {
		fmt.Fprintf(w, "row %d: pre [%s] post [%s]\n", rw.Row, describe(rw.Pre), describe(rw.Post))
	}
	return nil
}

func describe(keys []layout.KeyDescriptor) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " ")
}
