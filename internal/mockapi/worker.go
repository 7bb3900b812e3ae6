package mockapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/metrics"
)

// FailOncePrefix marks simulations whose first generation run fails, so
// resume can be exercised.
const FailOncePrefix = "fail-"

var sectionTitles = []string{"Background", "Key Findings", "Outlook"}

type job struct {
	reportID string
}

// runWorkers consumes generation jobs until ctx is done.
func (s *Server) runWorkers(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j := <-s.jobs:
					s.generate(gctx, j)
				}
			}
		})
	}
	s.ready.Store(true)
	defer s.ready.Store(false)
	logx.Info("Worker", "%d generation workers started", s.opts.Workers)
	return g.Wait()
}

// pause waits one step; false means ctx ended first.
func (s *Server) pause(ctx context.Context) bool {
	if s.opts.StepDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.opts.StepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Server) generate(ctx context.Context, j job) {
	defer logx.Start(j.reportID, "Worker", "generate").End()

	rec, ok := s.reports.update(j.reportID, func(r *reportRecord) {
		r.runs++
		r.report.Status = api.StatusGenerating
		r.progress = 5
		r.message = "planning outline"
	})
	if !ok {
		return // deleted while queued
	}
	id, sim := rec.report.ID, rec.report.SimulationID
	s.logs.AddEvent(id, "report_start", "planning", "", map[string]any{"simulation_id": sim, "run": rec.runs})
	s.logs.Console(id, "generation started for simulation %s (run %d)", sim, rec.runs)

	if !s.pause(ctx) {
		s.fail(id, "generation interrupted")
		return
	}

	outline := &api.Outline{
		Title:   fmt.Sprintf("Simulation %s analysis", sim),
		Summary: fmt.Sprintf("Automated analysis of simulation %s.", sim),
	}
	for _, t := range sectionTitles {
		outline.Sections = append(outline.Sections, api.Section{Title: t})
	}
	s.reports.update(id, func(r *reportRecord) {
		r.report.Outline = outline
		r.progress = 15
		r.message = "outline ready"
	})
	s.logs.AddEvent(id, "planning_complete", "planning", "", map[string]any{"sections": len(sectionTitles)})

	if strings.HasPrefix(sim, FailOncePrefix) && rec.runs == 1 {
		s.fail(id, "simulation data unavailable")
		return
	}

	for i, title := range sectionTitles {
		s.logs.AddEvent(id, "section_start", "generating", title, nil)
		s.logs.Console(id, "writing section %d/%d: %s", i+1, len(sectionTitles), title)
		if !s.pause(ctx) {
			s.fail(id, "generation interrupted")
			return
		}
		content := fmt.Sprintf("%s for simulation %s, section %d of %d.", title, sim, i+1, len(sectionTitles))
		progress := 15 + (i+1)*80/len(sectionTitles)
		_, ok := s.reports.update(id, func(r *reportRecord) {
			if r.report.Outline != nil && i < len(r.report.Outline.Sections) {
				r.report.Outline.Sections[i].Content = content
			}
			r.progress = progress
			r.message = "section complete: " + title
		})
		if !ok {
			return
		}
		s.logs.AddEvent(id, "section_complete", "generating", title, map[string]any{"progress": progress})
	}

	rec, ok = s.reports.update(id, func(r *reportRecord) {
		r.report.CompletedAt = api.Timestamp{Time: time.Now().UTC()}
	})
	if !ok {
		return
	}
	body, err := renderMarkdown(rec.report)
	if err != nil {
		s.fail(id, "rendering report: "+err.Error())
		return
	}
	s.reports.update(id, func(r *reportRecord) {
		r.report.MarkdownContent = body
		r.report.Status = api.StatusCompleted
		r.progress = 100
		r.message = "report completed"
	})
	s.logs.AddEvent(id, "report_complete", "completed", "", nil)
	s.logs.Console(id, "report %s completed", id)
	metrics.ReportsGenerated.WithLabelValues(string(api.StatusCompleted)).Inc()
}

func (s *Server) fail(id, reason string) {
	s.reports.update(id, func(r *reportRecord) {
		r.report.Status = api.StatusFailed
		r.report.Error = reason
		r.message = reason
	})
	s.logs.AddEvent(id, "error", "failed", "", map[string]any{"error": reason})
	s.logs.Console(id, "generation failed: %s", reason)
	metrics.ReportsGenerated.WithLabelValues(string(api.StatusFailed)).Inc()
	logx.Warn("Worker", "report %s failed: %s", id, reason)
}
