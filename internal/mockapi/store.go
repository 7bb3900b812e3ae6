package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccastromar/mirofish-console/internal/api"
)

type reportRecord struct {
	report   api.Report
	taskID   string
	progress int
	message  string
	runs     int // generation runs started, resume included
}

func (r *reportRecord) task() api.TaskStatus {
	return api.TaskStatus{
		TaskID:   r.taskID,
		ReportID: r.report.ID,
		Status:   r.report.Status,
		Progress: r.progress,
		Message:  r.message,
	}
}

// reportStore is an in-memory report table.
type reportStore struct {
	mu      sync.RWMutex
	reports map[string]*reportRecord
	tasks   map[string]string // task id -> report id
}

func newReportStore() *reportStore {
	return &reportStore{
		reports: make(map[string]*reportRecord),
		tasks:   make(map[string]string),
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// create registers a pending report for simulationID.
func (s *reportStore) create(simulationID string) reportRecord {
	rec := &reportRecord{
		report: api.Report{
			ID:           newID("report_"),
			SimulationID: simulationID,
			Status:       api.StatusPending,
			CreatedAt:    api.Timestamp{Time: time.Now().UTC()},
		},
		taskID:  newID("task_"),
		message: "queued",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[rec.report.ID] = rec
	s.tasks[rec.taskID] = rec.report.ID
	return snapshot(rec)
}

func (s *reportStore) get(id string) (reportRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.reports[id]
	if !ok {
		return reportRecord{}, false
	}
	return snapshot(rec), true
}

func (s *reportStore) byTask(taskID string) (reportRecord, bool) {
	s.mu.RLock()
	id, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return reportRecord{}, false
	}
	return s.get(id)
}

// latest returns the newest report of simulationID, optionally only completed ones.
func (s *reportStore) latest(simulationID string, completedOnly bool) (reportRecord, bool) {
	list := s.list(simulationID, 0)
	for _, r := range list {
		if completedOnly && r.Status != api.StatusCompleted {
			continue
		}
		return s.get(r.ID)
	}
	return reportRecord{}, false
}

// update applies fn under the write lock and returns the new state.
func (s *reportStore) update(id string, fn func(*reportRecord)) (reportRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reports[id]
	if !ok {
		return reportRecord{}, false
	}
	fn(rec)
	return snapshot(rec), true
}

// restart gives a failed report a new task id and puts it back to pending.
// Reports in any other status are returned unchanged with restarted false.
func (s *reportStore) restart(id string) (rec reportRecord, found, restarted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return reportRecord{}, false, false
	}
	if r.report.Status != api.StatusFailed {
		return snapshot(r), true, false
	}
	delete(s.tasks, r.taskID)
	r.taskID = newID("task_")
	s.tasks[r.taskID] = id
	r.report.Status = api.StatusPending
	r.report.Error = ""
	r.progress = 0
	r.message = "queued"
	return snapshot(r), true, true
}

func (s *reportStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reports[id]
	if !ok {
		return false
	}
	delete(s.tasks, rec.taskID)
	delete(s.reports, id)
	return true
}

// list returns reports newest first. limit <= 0 means all.
func (s *reportStore) list(simulationID string, limit int) []api.Report {
	s.mu.RLock()
	out := make([]api.Report, 0, len(s.reports))
	for _, rec := range s.reports {
		if simulationID != "" && rec.report.SimulationID != simulationID {
			continue
		}
		cp := snapshot(rec)
		// list view carries no body
		cp.report.MarkdownContent = ""
		out = append(out, cp.report)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// snapshot deep-copies rec so callers never share the outline.
func snapshot(rec *reportRecord) reportRecord {
	cp := *rec
	if rec.report.Outline != nil {
		o := *rec.report.Outline
		o.Sections = append([]api.Section(nil), rec.report.Outline.Sections...)
		cp.report.Outline = &o
	}
	return cp
}
