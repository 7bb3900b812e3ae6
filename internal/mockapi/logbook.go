package mockapi

import (
	"fmt"
	"sync"
	"time"

	"github.com/ccastromar/mirofish-console/internal/api"
)

// logbook keeps the agent and console logs of every report in memory.
type logbook struct {
	mu      sync.RWMutex
	agent   map[string][]api.AgentLogEntry
	console map[string][]string
}

func newLogbook() *logbook {
	return &logbook{
		agent:   make(map[string][]api.AgentLogEntry),
		console: make(map[string][]string),
	}
}

// AddEvent registra un evento del agente para un report.
func (l *logbook) AddEvent(reportID, action, stage, section string, details map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.agent[reportID] = append(l.agent[reportID], api.AgentLogEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Action:       action,
		Stage:        stage,
		SectionTitle: section,
		Details:      details,
	})
}

// Console appends one formatted console line.
func (l *logbook) Console(reportID, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.console[reportID] = append(l.console[reportID], line)
}

func (l *logbook) agentPage(reportID string, from int) api.LogPage[api.AgentLogEntry] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return page(l.agent[reportID], from)
}

func (l *logbook) consolePage(reportID string, from int) api.LogPage[string] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return page(l.console[reportID], from)
}

func (l *logbook) drop(reportID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.agent, reportID)
	delete(l.console, reportID)
}

// page copies all[from:]. has_more is always false: the whole tail is returned.
func page[T any](all []T, from int) api.LogPage[T] {
	if from < 0 {
		from = 0
	}
	if from > len(all) {
		from = len(all)
	}
	out := make([]T, len(all)-from)
	copy(out, all[from:])
	return api.LogPage[T]{
		Logs:       out,
		TotalLines: len(all),
		FromLine:   from,
	}
}
