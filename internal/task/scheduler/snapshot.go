package scheduler

import (
	"sort"
	"time"
)

type ActivityInfo struct {
	ID         string
	Name       string
	Interval   time.Duration
	Registered time.Time
	Stats      Stats
}

type Snapshot struct {
	Stopped    bool
	Activities []ActivityInfo
}

// Snapshot returns the registered activities sorted by name.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	acts := make([]*Activity, 0, len(s.activities))
	for _, a := range s.activities {
		acts = append(acts, a)
	}
	stopped := s.stopped
	s.mu.Unlock()

	items := make([]ActivityInfo, 0, len(acts))
	for _, a := range acts {
		items = append(items, ActivityInfo{
			ID:         a.id,
			Name:       a.name,
			Interval:   a.interval,
			Registered: a.registered,
			Stats:      a.Stats(),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return Snapshot{Stopped: stopped, Activities: items}
}
