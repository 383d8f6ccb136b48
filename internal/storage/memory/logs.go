package memory

import (
	"sort"

	"github.com/bcnelson/sandbox-console/internal/domain"
)

// logStream keeps each environment's entries newest first. Entries with equal
// timestamps keep most-recently-inserted first.
type logStream struct {
	owner map[string]string // entry id -> environment id
	byEnv map[string][]*domain.LogEntry
}

func newLogStream() *logStream {
	return &logStream{
		owner: make(map[string]string),
		byEnv: make(map[string][]*domain.LogEntry),
	}
}

func (l *logStream) prepend(entry *domain.LogEntry) error {
	if _, exists := l.owner[entry.ID]; exists {
		return domain.ErrAlreadyExists
	}
	entries := l.byEnv[entry.EnvironmentID]
	pos := sort.Search(len(entries), func(i int) bool {
		return !entries[i].Timestamp.After(entry.Timestamp)
	})
	entries = append(entries, nil)
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry.Clone()
	l.byEnv[entry.EnvironmentID] = entries
	l.owner[entry.ID] = entry.EnvironmentID
	return nil
}

func (l *logStream) list(envID string, filter domain.LogFilter) []*domain.LogEntry {
	out := make([]*domain.LogEntry, 0)
	for _, e := range l.byEnv[envID] {
		if !filter.Match(e) {
			continue
		}
		out = append(out, e.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

func (l *logStream) replace(envID string, entries []*domain.LogEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if owner, exists := l.owner[e.ID]; exists && owner != envID {
			return domain.ErrAlreadyExists
		}
		if _, dup := seen[e.ID]; dup {
			return domain.ErrAlreadyExists
		}
		seen[e.ID] = struct{}{}
	}

	l.removeEnvironment(envID)
	batch := make([]*domain.LogEntry, 0, len(entries))
	for _, e := range entries {
		c := e.Clone()
		c.EnvironmentID = envID
		batch = append(batch, c)
		l.owner[c.ID] = envID
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.After(batch[j].Timestamp)
	})
	if len(batch) > 0 {
		l.byEnv[envID] = batch
	}
	return nil
}

func (l *logStream) removeEnvironment(envID string) int {
	entries := l.byEnv[envID]
	for _, e := range entries {
		delete(l.owner, e.ID)
	}
	delete(l.byEnv, envID)
	return len(entries)
}
