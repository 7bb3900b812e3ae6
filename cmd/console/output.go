package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ccastromar/mirofish-console/internal/api"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v as JSON or YAML, or calls table for the default format.
func (c *cli) render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch c.output {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", c.output)
	}
}

var (
	statusColors = map[api.Status]*color.Color{
		api.StatusPending:    color.New(color.Faint),
		api.StatusGenerating: color.New(color.FgYellow),
		api.StatusCompleted:  color.New(color.FgGreen),
		api.StatusFailed:     color.New(color.FgRed),
	}
	okColor   = color.New(color.FgGreen)
	hintColor = color.New(color.Faint)
)

func statusText(s api.Status) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}

func formatTime(t api.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
