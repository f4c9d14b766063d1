package services

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jimlee/watchduel/engine"
	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/pkg/docstore"
	"github.com/jimlee/watchduel/pkg/logx"
	"github.com/jimlee/watchduel/schemas"
)

// MukjjippaTimings are the delays of the announcement sequence. Tests
// compress them; production uses the defaults.
type MukjjippaTimings struct {
	// MessageVisible is how long each call-out stays on screen.
	MessageVisible time.Duration
	// MessageGap is the blank pause between call-outs.
	MessageGap time.Duration
	// ResultReveal delays RESULT_WAIT -> SHOWING_RESULT so the opponent's
	// hand doesn't flicker in.
	ResultReveal time.Duration
	// ResultHold is how long both hands stay visible before resolution.
	ResultHold time.Duration
}

func DefaultMukjjippaTimings() MukjjippaTimings {
	return MukjjippaTimings{
		MessageVisible: time.Second,
		MessageGap:     500 * time.Millisecond,
		ResultReveal:   time.Second,
		ResultHold:     2 * time.Second,
	}
}

// MukjjippaSession synchronizes one mukjjippa game document for one
// participant and, when that participant is the elected authority, runs the
// countdown/resolution sequencer. Only the authority ever writes
// phase-advancing transitions; that single-writer convention is the only
// thing preventing both clients from scheduling the same timers.
type MukjjippaSession struct {
	store   docstore.Store
	gameId  string
	userId  string
	timings MukjjippaTimings
	// localOpponent makes the sequencer play the second seat with a random
	// hand after each countdown: the single-device practice mode.
	localOpponent bool
	now           func() int64

	mu           sync.Mutex
	current      *schemas.MukjjippaGameDoc
	runCtx       context.Context
	countdownJob *sequencerJob
	revealJob    *sequencerJob
	resolveJob   *sequencerJob
}

func NewMukjjippaSession(store docstore.Store, gameId, userId string, timings MukjjippaTimings) *MukjjippaSession {
	return &MukjjippaSession{
		store:   store,
		gameId:  gameId,
		userId:  userId,
		timings: timings,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// NewLocalMukjjippaSession is the offline single-device variant.
func NewLocalMukjjippaSession(store docstore.Store, gameId, userId string, timings MukjjippaTimings) *MukjjippaSession {
	session := NewMukjjippaSession(store, gameId, userId, timings)
	session.localOpponent = true
	return session
}

// sequencerJob is one cancellable timed task. A job stays "active" until its
// body returns, which is the re-entrancy guard: a document change observed
// while a task is in flight must not schedule a duplicate.
type sequencerJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (job *sequencerJob) active() bool {
	if job == nil {
		return false
	}
	select {
	case <-job.done:
		return false
	default:
		return true
	}
}

func (session *MukjjippaSession) path() string {
	return docstore.Join(mukjjippaGamesRoot, session.gameId)
}

// Run observes the game until ctx is cancelled or the document is deleted.
// A nil document handed to onSnapshot is the terminal exit-to-lobby signal.
func (session *MukjjippaSession) Run(ctx context.Context, onSnapshot func(*schemas.MukjjippaGameDoc)) error {
	session.mu.Lock()
	session.runCtx = ctx
	session.mu.Unlock()

	snapshots, err := session.store.Observe(ctx, session.path())
	if err != nil {
		return err
	}
	defer session.cancelJobs()

	for snapshot := range snapshots {
		if snapshot.Data == nil {
			session.cancelJobs()
			onSnapshot(nil)
			return nil
		}
		doc, err := schemas.DecodeMukjjippaGameDoc(snapshot.Data)
		if err != nil {
			logx.Logger.Info(
				"skipping malformed mukjjippa document",
				zap.String("gameId", session.gameId),
			)
			continue
		}
		session.mu.Lock()
		session.current = doc
		session.mu.Unlock()
		onSnapshot(doc)
		session.processSnapshot(doc)
	}
	return nil
}

func (session *MukjjippaSession) snapshot() *schemas.MukjjippaGameDoc {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.current
}

// processSnapshot reacts to one observed document version: cancels everything
// once the game is over, and otherwise schedules whichever authoritative
// timed step the state calls for.
func (session *MukjjippaSession) processSnapshot(doc *schemas.MukjjippaGameDoc) {
	state, err := doc.State()
	if err != nil {
		return
	}

	if state.Finished || state.Phase == entities.PhaseGameOver {
		session.cancelJobs()
		return
	}

	if session.userId != entities.Authority(doc.Player1Id, doc.Player2Id) {
		return
	}

	if state.BothReady && state.Countdown == entities.CountdownWaiting && !state.Finished {
		session.startCountdown(doc.Meta(), state)
	}

	if state.ChoiceComplete() && state.Countdown == entities.CountdownResultWait {
		session.startResultReveal(doc.Meta(), state)
	}

	if state.ChoiceComplete() && state.Countdown == entities.CountdownShowingResult {
		session.startResolution(doc.Meta())
	}
}

// startCountdown runs the announcement sequence: reveal each message, blank
// it, and finally park the game in RESULT_WAIT.
func (session *MukjjippaSession) startCountdown(meta schemas.SessionMeta, state entities.MukjjippaState) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.countdownJob.active() {
		return
	}

	ctx, cancel := context.WithCancel(session.runCtx)
	job := &sequencerJob{cancel: cancel, done: make(chan struct{})}
	session.countdownJob = job

	go func() {
		defer close(job.done)

		messages := engine.CountdownMessages(state)
		steps := []entities.CountdownState{entities.Countdown1, entities.Countdown2, entities.Countdown3}

		for i, message := range messages {
			step := state
			step.Countdown = steps[i]
			step.Message = message
			if err := session.writeState(ctx, meta, step); err != nil {
				return
			}
			if !sleep(ctx, session.timings.MessageVisible) {
				return
			}
			step.Message = ""
			if err := session.writeState(ctx, meta, step); err != nil {
				return
			}
			if !sleep(ctx, session.timings.MessageGap) {
				return
			}
		}

		final := state
		final.Countdown = entities.CountdownResultWait
		final.Message = ""
		if session.localOpponent {
			final = session.seedLocalChoice(final, meta)
		}
		if err := session.writeState(ctx, meta, final); err != nil {
			return
		}
	}()
}

// startResultReveal flips RESULT_WAIT to SHOWING_RESULT after a short hold.
// Reveal and resolution hold separate job slots: the SHOWING_RESULT snapshot
// can be observed before the reveal goroutine has fully wound down, and a
// shared slot would make the resolution look already scheduled.
func (session *MukjjippaSession) startResultReveal(meta schemas.SessionMeta, state entities.MukjjippaState) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.revealJob.active() {
		return
	}

	ctx, cancel := context.WithCancel(session.runCtx)
	job := &sequencerJob{cancel: cancel, done: make(chan struct{})}
	session.revealJob = job

	go func() {
		defer close(job.done)
		if !sleep(ctx, session.timings.ResultReveal) {
			return
		}
		next := state
		next.Countdown = entities.CountdownShowingResult
		if err := session.writeState(ctx, meta, next); err != nil {
			return
		}
	}()
}

// startResolution waits out the reveal, re-reads the latest state, and
// persists the rule engine's verdict unless something ended the game meanwhile.
func (session *MukjjippaSession) startResolution(meta schemas.SessionMeta) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.resolveJob.active() {
		return
	}

	ctx, cancel := context.WithCancel(session.runCtx)
	job := &sequencerJob{cancel: cancel, done: make(chan struct{})}
	session.resolveJob = job

	go func() {
		defer close(job.done)
		if !sleep(ctx, session.timings.ResultHold) {
			return
		}

		current := session.snapshot()
		if current == nil {
			return
		}
		state, err := current.State()
		if err != nil {
			return
		}
		if state.Countdown != entities.CountdownShowingResult || state.Finished {
			return
		}

		resolved := engine.ResolveMukjjippa(state, current.Player1Id, current.Player2Id)
		if err := session.writeState(ctx, meta, resolved); err != nil {
			return
		}
	}()
}

// seedLocalChoice gives the offline opponent a random hand.
func (session *MukjjippaSession) seedLocalChoice(state entities.MukjjippaState, meta schemas.SessionMeta) entities.MukjjippaState {
	hands := []entities.Choice{entities.ChoiceRock, entities.ChoiceScissors, entities.ChoicePaper}
	hand := hands[rand.Intn(len(hands))]
	if session.userId == meta.Player1Id {
		state.Player2Choice = hand
	} else {
		state.Player1Choice = hand
	}
	return state
}

// MakeChoice records this user's hand. Dropped while the result is showing,
// after the game ended, or when re-choosing during RESULT_WAIT.
func (session *MukjjippaSession) MakeChoice(ctx context.Context, choice entities.Choice) error {
	current := session.snapshot()
	if current == nil {
		return nil
	}
	state, err := current.State()
	if err != nil {
		return err
	}

	if state.Finished || state.Countdown == entities.CountdownShowingResult {
		return nil
	}
	if state.ChoiceFor(session.userId, current.Player1Id) != entities.ChoiceNone &&
		state.Countdown == entities.CountdownResultWait {
		return nil
	}

	if session.userId == current.Player1Id {
		state.Player1Choice = choice
	} else {
		state.Player2Choice = choice
	}
	return session.writeState(ctx, current.Meta(), state)
}

// Restart begins the next game, crediting the winner with a point.
func (session *MukjjippaSession) Restart(ctx context.Context) error {
	current := session.snapshot()
	if current == nil {
		return nil
	}
	state, err := current.State()
	if err != nil {
		return err
	}
	next := engine.RestartMukjjippa(state, current.Player1Id, current.Player2Id)
	return session.writeState(ctx, current.Meta(), next)
}

// Quit removes the session document; the opponent observes the deletion.
func (session *MukjjippaSession) Quit(ctx context.Context) error {
	session.cancelJobs()
	return session.store.Delete(ctx, session.path())
}

func (session *MukjjippaSession) cancelJobs() {
	session.mu.Lock()
	defer session.mu.Unlock()
	for _, job := range []*sequencerJob{session.countdownJob, session.revealJob, session.resolveJob} {
		if job != nil {
			job.cancel()
		}
	}
}

func (session *MukjjippaSession) writeState(ctx context.Context, meta schemas.SessionMeta, state entities.MukjjippaState) error {
	meta.LastMovePlayerId = session.userId
	doc := schemas.MukjjippaDocFromState(meta, state, session.now())
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return session.store.Set(ctx, session.path(), data)
}

// sleep blocks for d unless ctx is cancelled first; reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
