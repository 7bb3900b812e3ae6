package mockapi

import (
	"bytes"

	"github.com/nao1215/markdown"

	"github.com/ccastromar/mirofish-console/internal/api"
)

// renderMarkdown builds the downloadable body of a completed report.
func renderMarkdown(r api.Report) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	title := r.Title()
	md.H1(title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Report", "`" + r.ID + "`"},
			{"Simulation", "`" + r.SimulationID + "`"},
			{"Generated", r.CompletedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	if r.Outline != nil {
		if r.Outline.Summary != "" {
			md.H2("Summary")
			md.PlainText("")
			md.PlainText(r.Outline.Summary)
			md.PlainText("")
		}
		for _, s := range r.Outline.Sections {
			md.H2(s.Title)
			md.PlainText("")
			md.PlainText(s.Content)
			md.PlainText("")
		}
	}
	md.HorizontalRule()

	if err := md.Build(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
