// services/coordinator.go - Round Coordinator (scoreboard convergence + countdown)
package services

import (
	"context"
	"log"
	"sync"
	"time"

	"owlhoot/models"

	"github.com/jonboulle/clockwork"
)

// Coordinator states
const (
	stateWaiting    = "waiting"
	stateAllPresent = "all-present"
	stateDone       = "done"
)

// PlayerFeed is the narrow slice of the player store the coordinator
// needs, so it can run against a fake in tests.
type PlayerFeed interface {
	Subscribe(filter func(*models.Player) bool) (<-chan []models.Player, func())
	ClearPresence(round int) error
}

// NavTarget is the coordinator's navigation decision.
type NavTarget struct {
	Podium   bool `json:"podium"`
	Question int  `json:"question"`
}

// RoundCoordinator decides, for one round and one watching client, when
// every active player has reached the scoreboard, then runs a fixed
// countdown and fires a navigation decision. Every connected client runs
// its own coordinator over the same shared snapshots - this is a
// best-effort convergence protocol, not consensus; clients navigating a
// few hundred milliseconds apart is tolerated.
type RoundCoordinator struct {
	feed          PlayerFeed
	round         int
	questionCount int
	countdown     time.Duration
	clock         clockwork.Clock
	navigate      func(NavTarget)

	// Optional transition hooks, invoked from the coordinator goroutine.
	OnCountdown func(deadline time.Time)
	OnCancelled func()

	mu       sync.Mutex
	state    string
	deadline time.Time
	timer    clockwork.Timer

	resumeCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRoundCoordinator builds a coordinator for round n of a quiz with
// questionCount questions. navigate is invoked exactly once, from the
// coordinator's own goroutine.
func NewRoundCoordinator(feed PlayerFeed, round, questionCount int, countdown time.Duration, clock clockwork.Clock, navigate func(NavTarget)) *RoundCoordinator {
	return &RoundCoordinator{
		feed:          feed,
		round:         round,
		questionCount: questionCount,
		countdown:     countdown,
		clock:         clock,
		navigate:      navigate,
		state:         stateWaiting,
		resumeCh:      make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// Run subscribes to the player feed and blocks until navigation fires,
// Stop is called, or ctx is cancelled. The subscription and any pending
// timer are always released on the way out.
func (c *RoundCoordinator) Run(ctx context.Context) {
	snapshots, cancel := c.feed.Subscribe(nil)
	defer cancel()
	defer c.stopTimer()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			c.evaluate(snap)
		case <-c.timerChan():
			c.fire()
			return
		case <-c.resumeCh:
			// The visibility hook: a backgrounded tab's timer may have been
			// throttled past the deadline; re-check wall clock on wake.
			if c.deadlinePassed() {
				c.fire()
				return
			}
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Resume re-evaluates the deadline immediately. Wired to the client's
// visibility-change event.
func (c *RoundCoordinator) Resume() {
	select {
	case c.resumeCh <- struct{}{}:
	default:
	}
}

// Stop cancels the coordinator before it navigates (client left the
// scoreboard early). Idempotent.
func (c *RoundCoordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Status reports the coordinator's current state for the debug endpoint.
func (c *RoundCoordinator) Status() (state string, round int, deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.round, c.deadline
}

// Deadline returns the countdown deadline, zero while waiting.
func (c *RoundCoordinator) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// evaluate applies the all-present predicate to a snapshot. The
// waiting → all-present transition is idempotent: re-delivery of a
// satisfied snapshot must not restart or extend the countdown.
func (c *RoundCoordinator) evaluate(players []models.Player) {
	active := 0
	present := 0
	for i := range players {
		if !players[i].HasBeenAdded {
			continue
		}
		active++
		if players[i].PresentOn(c.round) {
			present++
		}
	}

	// No players joined: wait indefinitely, never false-trigger.
	satisfied := active > 0 && active == present

	c.mu.Lock()
	var started, cancelled bool
	var deadline time.Time

	switch {
	case satisfied && c.state == stateWaiting:
		c.state = stateAllPresent
		c.deadline = c.clock.Now().Add(c.countdown)
		c.timer = c.clock.NewTimer(c.countdown)
		started, deadline = true, c.deadline
		log.Printf("⏱️ Round %d: all %d players present, countdown ends at %s",
			c.round, active, c.deadline.Format(time.RFC3339))

	case !satisfied && c.state == stateAllPresent && c.clock.Now().Before(c.deadline):
		// A presence flag regressed before the deadline; back to waiting.
		// At or past the deadline the decision is already made - the
		// "regression" observed then is another replica's presence reset,
		// and the pending timer tick still navigates this client.
		c.state = stateWaiting
		c.deadline = time.Time{}
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		cancelled = true
		log.Printf("⏱️ Round %d: presence regressed (%d/%d), countdown cancelled", c.round, present, active)
	}
	c.mu.Unlock()

	if started && c.OnCountdown != nil {
		c.OnCountdown(deadline)
	}
	if cancelled && c.OnCancelled != nil {
		c.OnCancelled()
	}
}

// fire resets presence for this round and navigates. The presence reset is
// best-effort: every watching client attempts the same idempotent update,
// and a failed write must not stall this client's navigation.
func (c *RoundCoordinator) fire() {
	c.mu.Lock()
	if c.state != stateAllPresent {
		c.mu.Unlock()
		return
	}
	c.state = stateDone
	round := c.round
	c.mu.Unlock()

	if err := c.feed.ClearPresence(round); err != nil {
		log.Printf("⚠️ Round %d: presence reset failed (continuing): %v", round, err)
	}

	target := NavTarget{Question: round + 1}
	if round+1 >= c.questionCount {
		target = NavTarget{Podium: true}
	}

	log.Printf("➡️ Round %d complete: navigating (podium=%v, question=%d)", round, target.Podium, target.Question)
	c.navigate(target)
}

func (c *RoundCoordinator) timerChan() <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return nil
	}
	return c.timer.Chan()
}

func (c *RoundCoordinator) deadlinePassed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAllPresent && !c.deadline.IsZero() && !c.clock.Now().Before(c.deadline)
}

func (c *RoundCoordinator) stopTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
