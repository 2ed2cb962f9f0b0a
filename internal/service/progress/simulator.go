// Package progress drives a per-order delivery progress display. It is a
// demonstration state machine layered over the authoritative order status:
// it fills the gaps between real transitions with timed stage advances and a
// simulated arrival countdown. It never feeds back into the authoritative
// status.
package progress

import (
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
)

// Stage is a delivery display stage. Stages are strictly ordered and each
// maps to a fixed progress percentage.
type Stage string

const (
	StagePending        Stage = "pending"
	StageConfirmed      Stage = "confirmed"
	StagePreparing      Stage = "preparing"
	StageReadyForPickup Stage = "ready_for_pickup"
	StageAssigned       Stage = "assigned"
	StagePickedUp       Stage = "picked_up"
	StageOnWay          Stage = "on_way"
	StageDelivered      Stage = "delivered"
)

var stageLadder = []Stage{
	StagePending,
	StageConfirmed,
	StagePreparing,
	StageReadyForPickup,
	StageAssigned,
	StagePickedUp,
	StageOnWay,
	StageDelivered,
}

var stagePercent = map[Stage]int{
	StagePending:        0,
	StageConfirmed:      10,
	StagePreparing:      25,
	StageReadyForPickup: 40,
	StageAssigned:       50,
	StagePickedUp:       75,
	StageOnWay:          90,
	StageDelivered:      100,
}

func stageIndex(s Stage) int {
	for i, stage := range stageLadder {
		if stage == s {
			return i
		}
	}
	return -1
}

// stageForStatus maps an authoritative order status to the display stage it
// implies. Cancelled orders have no delivery progress.
func stageForStatus(status entity.OrderStatus) (Stage, bool) {
	switch status {
	case entity.OrderPending:
		return StagePending, true
	case entity.OrderConfirmed:
		return StageConfirmed, true
	case entity.OrderPreparing:
		return StagePreparing, true
	case entity.OrderReady:
		return StageReadyForPickup, true
	case entity.OrderDelivered, entity.OrderCompleted:
		return StageDelivered, true
	default:
		return "", false
	}
}

// Snapshot is the displayable progress state of one order. ArrivesInSeconds
// is recomputed on every read and clamps at zero: "arriving now", never
// negative.
type Snapshot struct {
	OrderID          string    `json:"orderId"`
	Status           Stage     `json:"status"`
	ProgressPercent  int       `json:"progressPercent"`
	EstimatedArrival time.Time `json:"estimatedArrival"`
	ArrivesInSeconds int64     `json:"arrivesInSeconds"`
}

type session struct {
	idx   int
	eta   time.Time
	timer Timer
	subs  map[int]chan Snapshot
}

// Simulator holds one session per observed order. Advancement is monotonic
// and idempotent: re-observing an order already in a later stage is a no-op,
// and no forward stage is ever skipped in the emitted stream.
type Simulator struct {
	mu       sync.Mutex
	sessions map[string]*session
	clock    Clock
	logger   *zap.Logger

	prepDelay     time.Duration
	stageDelay    time.Duration
	arrivalOffset time.Duration

	nextSub int
	closed  bool
}

// Module wires the clock, simulator, and mirror feed.
var Module = fx.Options(
	fx.Provide(NewClock, NewSimulator, NewFeed),
	fx.Invoke(func(lc fx.Lifecycle, f *Feed) {
		lc.Append(fx.Hook{
			OnStart: f.Start,
			OnStop:  f.Stop,
		})
	}),
)

// NewSimulator constructs a Simulator with the configured delays.
func NewSimulator(cfg config.Config, clock Clock, logger *zap.Logger) *Simulator {
	return &Simulator{
		sessions:      make(map[string]*session),
		clock:         clock,
		logger:        logger,
		prepDelay:     cfg.Simulator.PrepDelay,
		stageDelay:    cfg.Simulator.StageDelay,
		arrivalOffset: cfg.Simulator.ArrivalOffset,
	}
}

// Observe feeds an order's authoritative status into its session, advancing
// the display stage forward as far as the status implies.
func (s *Simulator) Observe(orderID string, status entity.OrderStatus) {
	target, ok := stageForStatus(status)
	if !ok {
		s.Release(orderID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	sess := s.sessions[orderID]
	if sess == nil {
		sess = &session{idx: -1, subs: make(map[int]chan Snapshot)}
		s.sessions[orderID] = sess
	}
	s.advanceLocked(orderID, sess, stageIndex(target))
}

func (s *Simulator) advanceLocked(orderID string, sess *session, targetIdx int) {
	for sess.idx < targetIdx {
		sess.idx++
		stage := stageLadder[sess.idx]

		if stage == StageAssigned && sess.eta.IsZero() {
			// The arrival estimate is fixed at assignment time; only the
			// countdown is recomputed on display refresh.
			sess.eta = s.clock.Now().Add(s.arrivalOffset)
		}

		switch stage {
		case StageConfirmed:
			// Models kitchen preparation latency when no real event source
			// exists.
			s.scheduleLocked(orderID, sess, s.prepDelay, StagePreparing)
		case StageReadyForPickup:
			s.scheduleLocked(orderID, sess, s.stageDelay, StageAssigned)
		case StageAssigned:
			s.scheduleLocked(orderID, sess, s.stageDelay, StagePickedUp)
		case StagePickedUp:
			s.scheduleLocked(orderID, sess, s.stageDelay, StageOnWay)
		default:
			if sess.timer != nil {
				sess.timer.Stop()
				sess.timer = nil
			}
		}

		snap := s.snapshotLocked(orderID, sess)
		for _, ch := range sess.subs {
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Simulator) scheduleLocked(orderID string, sess *session, d time.Duration, target Stage) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.timer = s.clock.AfterFunc(d, func() {
		s.advanceTimer(orderID, target)
	})
}

func (s *Simulator) advanceTimer(orderID string, target Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	sess := s.sessions[orderID]
	if sess == nil {
		return
	}
	s.advanceLocked(orderID, sess, stageIndex(target))
}

// Snapshot returns the current progress of an order, if observed.
func (s *Simulator) Snapshot(orderID string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[orderID]
	if sess == nil || sess.idx < 0 {
		return Snapshot{}, false
	}
	return s.snapshotLocked(orderID, sess), true
}

func (s *Simulator) snapshotLocked(orderID string, sess *session) Snapshot {
	snap := Snapshot{
		OrderID:         orderID,
		Status:          stageLadder[sess.idx],
		ProgressPercent: stagePercent[stageLadder[sess.idx]],
	}
	if !sess.eta.IsZero() {
		snap.EstimatedArrival = sess.eta
		if remaining := sess.eta.Sub(s.clock.Now()); remaining > 0 {
			snap.ArrivesInSeconds = int64(remaining.Seconds())
		}
	}
	return snap
}

// Subscribe returns a stream of progress snapshots for one order plus a
// cancel func. If the order is already observed, the current snapshot is
// delivered immediately.
func (s *Simulator) Subscribe(orderID string) (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	sess := s.sessions[orderID]
	if sess == nil {
		sess = &session{idx: -1, subs: make(map[int]chan Snapshot)}
		s.sessions[orderID] = sess
	}
	id := s.nextSub
	s.nextSub++
	sess.subs[id] = ch

	if sess.idx >= 0 {
		ch <- s.snapshotLocked(orderID, sess)
	}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := sess.subs[id]; ok && cur == ch {
			delete(sess.subs, id)
			close(ch)
		}
	}
}

// Release tears down an order's session, cancelling its pending timer. Views
// must release sessions they own on dismissal so state does not leak between
// viewing sessions.
func (s *Simulator) Release(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(orderID)
}

func (s *Simulator) releaseLocked(orderID string) {
	sess := s.sessions[orderID]
	if sess == nil {
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	// Remove entries as they close so a subscriber's cancel func invoked after
	// release finds nothing to close again.
	for id, ch := range sess.subs {
		close(ch)
		delete(sess.subs, id)
	}
	delete(s.sessions, orderID)
}

// Close releases every session. The simulator accepts no observations after
// Close.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for orderID := range s.sessions {
		s.releaseLocked(orderID)
	}
}
