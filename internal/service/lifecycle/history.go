package lifecycle

import (
	"sync"
	"time"
)

// StatusEvent is one hop in an entity's status history.
type StatusEvent struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// historyLog is an append-only in-process record of status events per entity.
// The store itself keeps only the previous/current pair, so this log is the
// only place multi-hop history exists.
type historyLog struct {
	mu       sync.Mutex
	byEntity map[string][]StatusEvent
}

func newHistoryLog() *historyLog {
	return &historyLog{byEntity: make(map[string][]StatusEvent)}
}

func (l *historyLog) append(id, status string, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byEntity[id] = append(l.byEntity[id], StatusEvent{Status: status, Timestamp: ts})
}

func (l *historyLog) events(id string) []StatusEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := l.byEntity[id]
	if len(stored) == 0 {
		return nil
	}
	out := make([]StatusEvent, len(stored))
	copy(out, stored)
	return out
}

// reconstructHistory rebuilds what can be known from the single stored hop:
// the current status and, when a transition has occurred, the one before it.
// The previous status is stamped with createdAt, which is exact only when a
// single transition has happened; a record that moved through several states
// elsewhere gets an approximate timestamp for its intermediate hop.
func reconstructHistory(previous, current string, createdAt, statusUpdatedAt time.Time) []StatusEvent {
	if previous == "" || statusUpdatedAt.IsZero() {
		return []StatusEvent{{Status: current, Timestamp: createdAt}}
	}
	return []StatusEvent{
		{Status: previous, Timestamp: createdAt},
		{Status: current, Timestamp: statusUpdatedAt},
	}
}
