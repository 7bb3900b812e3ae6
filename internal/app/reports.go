package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/logx"
)

// DefaultPollInterval is how often generation status is polled.
const DefaultPollInterval = 2 * time.Second

// WaitForTask polls the generation task until it reaches a terminal status.
// progress, when non-nil, is called on every poll.
func (a *App) WaitForTask(ctx context.Context, taskID string, every time.Duration, progress func(api.TaskStatus)) (api.TaskStatus, error) {
	if every <= 0 {
		every = DefaultPollInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		st, err := a.Client.GenerateStatus(ctx, api.StatusQuery{TaskID: taskID})
		if err != nil {
			return st, err
		}
		if progress != nil {
			progress(st)
		}
		if st.Status.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-t.C:
		}
	}
}

// FollowConsole streams console log lines to emit until the report is
// terminal or ctx is done.
func (a *App) FollowConsole(ctx context.Context, reportID string, every time.Duration, emit func(string)) error {
	if every <= 0 {
		every = DefaultPollInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	from := 0
	for {
		page, err := a.Client.ConsoleLog(ctx, reportID, from)
		if err != nil {
			return err
		}
		for _, l := range page.Logs {
			emit(l)
		}
		from = page.Next()
		if page.HasMore {
			continue
		}
		rep, err := a.Client.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if rep.Status.Terminal() {
			// drain what was written between the two calls
			last, err := a.Client.ConsoleLog(ctx, reportID, from)
			if err != nil {
				return err
			}
			for _, l := range last.Logs {
				emit(l)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// DownloadResult is the outcome of one report download.
type DownloadResult struct {
	ReportID string
	Path     string
	Bytes    int64
	Err      error
}

// DownloadAll fetches ids concurrently into dir. Every id gets a result;
// the returned error joins the individual failures.
func (a *App) DownloadAll(ctx context.Context, dir string, ids []string, concurrency int) ([]DownloadResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	results := make([]DownloadResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = a.downloadOne(gctx, dir, id)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.ReportID, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (a *App) downloadOne(ctx context.Context, dir, id string) DownloadResult {
	defer logx.Start(id, "Console", "download").End()
	res := DownloadResult{ReportID: id}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		res.Err = err
		return res
	}
	defer os.Remove(tmp.Name())

	d, err := a.Client.DownloadReport(ctx, id, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		res.Err = err
		return res
	}
	// never trust a server-supplied path
	name := filepath.Base(d.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = id + ".md"
	}
	res.Path = filepath.Join(dir, name)
	res.Bytes = d.Bytes
	if err := os.Rename(tmp.Name(), res.Path); err != nil {
		res.Err = err
		return res
	}
	logx.Info("Console", "downloaded %s -> %s (%d bytes)", id, res.Path, res.Bytes)
	return res
}
