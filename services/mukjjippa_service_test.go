package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimlee/watchduel/engine"
	"github.com/jimlee/watchduel/entities"
	"github.com/jimlee/watchduel/pkg/docstore"
	"github.com/jimlee/watchduel/schemas"
)

// userHi sorts before userJim, so userHi is the elected authority in every
// test here.

func fastTimings() MukjjippaTimings {
	return MukjjippaTimings{
		MessageVisible: 2 * time.Millisecond,
		MessageGap:     time.Millisecond,
		ResultReveal:   2 * time.Millisecond,
		ResultHold:     2 * time.Millisecond,
	}
}

func seedMukjjippaGame(t *testing.T, store *docstore.Memory, gameId string) {
	t.Helper()
	meta := schemas.SessionMeta{GameId: gameId, Player1Id: userJim, Player2Id: userHi}
	doc := schemas.MukjjippaDocFromState(meta, entities.NewMukjjippaState(), 0)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "mukjjippaGames/"+gameId, data))
}

// mukjjippaCollector accumulates a session's snapshot callbacks so the test
// goroutine can poll them.
type mukjjippaCollector struct {
	mu      sync.Mutex
	docs    []*schemas.MukjjippaGameDoc
	deleted bool
}

func (c *mukjjippaCollector) add(doc *schemas.MukjjippaGameDoc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc == nil {
		c.deleted = true
		return
	}
	c.docs = append(c.docs, doc)
}

func (c *mukjjippaCollector) sawDeletion() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleted
}

func (c *mukjjippaCollector) any(match func(*schemas.MukjjippaGameDoc) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		if match(doc) {
			return true
		}
	}
	return false
}

func (c *mukjjippaCollector) messages() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]bool{}
	for _, doc := range c.docs {
		if doc.CurrentMessage != "" {
			seen[doc.CurrentMessage] = true
		}
	}
	return seen
}

func runSession(t *testing.T, session *MukjjippaSession) *mukjjippaCollector {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	collector := &mukjjippaCollector{}
	go func() {
		_ = session.Run(ctx, collector.add)
	}()
	return collector
}

func atCountdown(state entities.CountdownState) func(*schemas.MukjjippaGameDoc) bool {
	return func(doc *schemas.MukjjippaGameDoc) bool {
		return doc.CountdownState == string(state)
	}
}

func TestAuthorityRunsCountdownToResultWait(t *testing.T) {
	store := docstore.NewMemory()
	seedMukjjippaGame(t, store, "g1")

	session := NewMukjjippaSession(store, "g1", userHi, fastTimings())
	collector := runSession(t, session)

	require.Eventually(t, func() bool {
		return collector.any(atCountdown(entities.CountdownResultWait))
	}, 2*time.Second, 5*time.Millisecond, "countdown never reached RESULT_WAIT")

	messages := collector.messages()
	assert.True(t, messages[engine.MessageRPS1])
	assert.True(t, messages[engine.MessageRPS2])
	assert.True(t, messages[engine.MessageRPS3])
}

func TestNonAuthorityNeverSequences(t *testing.T) {
	store := docstore.NewMemory()
	seedMukjjippaGame(t, store, "g1")

	session := NewMukjjippaSession(store, "g1", userJim, fastTimings())
	collector := runSession(t, session)

	require.Eventually(t, func() bool {
		return collector.any(func(*schemas.MukjjippaGameDoc) bool { return true })
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	data, err := store.Get(context.Background(), "mukjjippaGames/g1")
	require.NoError(t, err)
	doc, err := schemas.DecodeMukjjippaGameDoc(data)
	require.NoError(t, err)
	assert.Equal(t, string(entities.CountdownWaiting), doc.CountdownState,
		"only the authority may advance the countdown")
}

func TestChoicesResolveIntoMukjjippaPhase(t *testing.T) {
	store := docstore.NewMemory()
	seedMukjjippaGame(t, store, "g1")
	ctx := context.Background()

	authority := NewMukjjippaSession(store, "g1", userHi, fastTimings())
	opponent := NewMukjjippaSession(store, "g1", userJim, fastTimings())
	authorityView := runSession(t, authority)
	opponentView := runSession(t, opponent)

	require.Eventually(t, func() bool {
		return opponentView.any(atCountdown(entities.CountdownResultWait))
	}, 2*time.Second, 5*time.Millisecond)

	// Seat 1 throws scissors, seat 2 rock. Rock wins, so userHi attacks.
	require.NoError(t, opponent.MakeChoice(ctx, entities.ChoiceScissors))
	require.Eventually(t, func() bool {
		return authorityView.any(func(doc *schemas.MukjjippaGameDoc) bool {
			return doc.Player1Choice != nil
		})
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, authority.MakeChoice(ctx, entities.ChoiceRock))

	require.Eventually(t, func() bool {
		return authorityView.any(atCountdown(entities.CountdownShowingResult))
	}, 2*time.Second, 5*time.Millisecond, "result was never shown")

	require.Eventually(t, func() bool {
		return authorityView.any(func(doc *schemas.MukjjippaGameDoc) bool {
			return doc.Phase == string(entities.PhaseMukjjippa) &&
				doc.AttackerId != nil && *doc.AttackerId == userHi
		})
	}, 2*time.Second, 5*time.Millisecond, "round was never resolved")
}

func TestChoiceDroppedWhileResultShowing(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	meta := schemas.SessionMeta{GameId: "g1", Player1Id: userJim, Player2Id: userHi}
	state := entities.NewMukjjippaState()
	state.Countdown = entities.CountdownShowingResult
	state.Player1Choice = entities.ChoiceRock
	state.Player2Choice = entities.ChoiceScissors
	data, err := json.Marshal(schemas.MukjjippaDocFromState(meta, state, 0))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "mukjjippaGames/g1", data))

	// Non-authority participant, so the sequencer leaves the document alone.
	session := NewMukjjippaSession(store, "g1", userJim, fastTimings())
	collector := runSession(t, session)
	require.Eventually(t, func() bool {
		return collector.any(func(*schemas.MukjjippaGameDoc) bool { return true })
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, session.MakeChoice(ctx, entities.ChoicePaper))

	after, err := store.Get(ctx, "mukjjippaGames/g1")
	require.NoError(t, err)
	doc, err := schemas.DecodeMukjjippaGameDoc(after)
	require.NoError(t, err)
	require.NotNil(t, doc.Player1Choice)
	assert.Equal(t, string(entities.ChoiceRock), *doc.Player1Choice,
		"a hand thrown during the reveal must not overwrite the committed one")
}

func TestMakeChoiceBeforeFirstSnapshotIsDropped(t *testing.T) {
	store := docstore.NewMemory()
	session := NewMukjjippaSession(store, "g1", userJim, fastTimings())

	require.NoError(t, session.MakeChoice(context.Background(), entities.ChoiceRock))

	data, err := store.Get(context.Background(), "mukjjippaGames/g1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestQuitSignalsOpponentSession(t *testing.T) {
	store := docstore.NewMemory()
	seedMukjjippaGame(t, store, "g1")

	leaver := NewMukjjippaSession(store, "g1", userHi, fastTimings())
	staying := NewMukjjippaSession(store, "g1", userJim, fastTimings())
	stayingView := runSession(t, staying)

	require.Eventually(t, func() bool {
		return stayingView.any(func(*schemas.MukjjippaGameDoc) bool { return true })
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, leaver.Quit(context.Background()))

	require.Eventually(t, stayingView.sawDeletion, 2*time.Second, 5*time.Millisecond,
		"the opponent never saw the exit-to-lobby signal")
}

func TestLocalSessionSeedsOpponentHand(t *testing.T) {
	store := docstore.NewMemory()
	seedMukjjippaGame(t, store, "g1")

	// userHi is the authority and plays seat 2; the sequencer throws for
	// seat 1 when the countdown lands.
	session := NewLocalMukjjippaSession(store, "g1", userHi, fastTimings())
	collector := runSession(t, session)

	require.Eventually(t, func() bool {
		return collector.any(func(doc *schemas.MukjjippaGameDoc) bool {
			return doc.CountdownState == string(entities.CountdownResultWait) &&
				doc.Player1Choice != nil
		})
	}, 2*time.Second, 5*time.Millisecond, "local opponent never threw a hand")
}
