package docstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetAbsent(t *testing.T) {
	store := NewMemory()
	data, err := store.Get(context.Background(), "games/missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Set(ctx, "games/g1", []byte(`{"a":1}`)))
	data, err := store.Get(ctx, "games/g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	require.NoError(t, store.Delete(ctx, "games/g1"))
	data, err = store.Get(ctx, "games/g1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemoryUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Set(ctx, "gameRequests/u1/r1", []byte(`{"status":"PENDING","fromUserId":"u2"}`)))
	require.NoError(t, store.Update(ctx, "gameRequests/u1/r1", map[string]any{
		"status": "ACCEPTED",
		"gameId": "g9",
	}))

	data, err := store.Get(ctx, "gameRequests/u1/r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ACCEPTED","fromUserId":"u2","gameId":"g9"}`, string(data))
}

func TestMemoryObserveEmitsNilOnDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemory()

	snapshots, err := store.Observe(ctx, "games/g1")
	require.NoError(t, err)

	initial := <-snapshots
	assert.Nil(t, initial.Data, "absent document should observe as nil")

	require.NoError(t, store.Set(ctx, "games/g1", []byte(`{"x":1}`)))
	created := receiveSnapshot(t, snapshots)
	assert.JSONEq(t, `{"x":1}`, string(created.Data))

	require.NoError(t, store.Delete(ctx, "games/g1"))
	deleted := receiveSnapshot(t, snapshots)
	assert.Nil(t, deleted.Data, "deletion must propagate as a nil snapshot")
}

func TestMemoryObserveChildren(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemory()

	require.NoError(t, store.Set(ctx, "gameRequests/u1/r1", []byte(`{"n":1}`)))

	lists, err := store.ObserveChildren(ctx, "gameRequests/u1")
	require.NoError(t, err)

	initial := <-lists
	require.Len(t, initial, 1)
	assert.Equal(t, "gameRequests/u1/r1", initial[0].Path)

	require.NoError(t, store.Set(ctx, "gameRequests/u1/r2", []byte(`{"n":2}`)))
	updated := receiveList(t, lists)
	require.Len(t, updated, 2)
	assert.Equal(t, "gameRequests/u1/r1", updated[0].Path)
	assert.Equal(t, "gameRequests/u1/r2", updated[1].Path)

	require.NoError(t, store.Delete(ctx, "gameRequests/u1/r1"))
	updated = receiveList(t, lists)
	require.Len(t, updated, 1)
	assert.Equal(t, "gameRequests/u1/r2", updated[0].Path)
}

func TestMemoryObserveDeletionSurvivesLaggingSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemory()

	snapshots, err := store.Observe(ctx, "games/g1")
	require.NoError(t, err)

	// Overrun the subscriber's buffer without draining it, then delete.
	for i := 0; i < 40; i++ {
		require.NoError(t, store.Set(ctx, "games/g1", []byte(`{"n":1}`)))
	}
	require.NoError(t, store.Delete(ctx, "games/g1"))

	// However much was evicted, the terminal nil snapshot must still arrive.
	for {
		snapshot := receiveSnapshot(t, snapshots)
		if snapshot.Data == nil {
			return
		}
	}
}

func TestMemoryObserveChildrenLatestListSurvivesLag(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemory()

	require.NoError(t, store.Set(ctx, "gameRequests/u1/r1", []byte(`{"n":1}`)))
	lists, err := store.ObserveChildren(ctx, "gameRequests/u1")
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		require.NoError(t, store.Set(ctx, "gameRequests/u1/r1", []byte(`{"n":2}`)))
	}
	require.NoError(t, store.Delete(ctx, "gameRequests/u1/r1"))

	for {
		list := receiveList(t, lists)
		if len(list) == 0 {
			return
		}
	}
}

func TestMemoryObserveSnapshotsNeverRegress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemory()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 50; i++ {
			data, err := json.Marshal(map[string]int{"n": i})
			if err != nil {
				return
			}
			if err := store.Set(ctx, "games/g1", data); err != nil {
				return
			}
		}
	}()

	snapshots, err := store.Observe(ctx, "games/g1")
	require.NoError(t, err)
	<-done

	// The initial snapshot is enqueued under the store lock, so whatever was
	// written concurrently, observed versions only ever move forward.
	last := -1
	for {
		select {
		case snapshot := <-snapshots:
			if snapshot.Data == nil {
				continue
			}
			var doc struct {
				N int `json:"n"`
			}
			require.NoError(t, json.Unmarshal(snapshot.Data, &doc))
			assert.GreaterOrEqual(t, doc.N, last, "observed an older document after a newer one")
			last = doc.N
		default:
			return
		}
	}
}

func TestMemoryObserveStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemory()

	snapshots, err := store.Observe(ctx, "games/g1")
	require.NoError(t, err)
	<-snapshots

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-snapshots:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "channel should close after cancel")
}

func TestParent(t *testing.T) {
	assert.Equal(t, "gameRequests/u1", Parent("gameRequests/u1/r1"))
	assert.Equal(t, "", Parent("games"))
	assert.Equal(t, "games/g1", Parent(Join("games", "g1", "x")))
}

func receiveSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func receiveList(t *testing.T, ch <-chan []Snapshot) []Snapshot {
	t.Helper()
	select {
	case l := <-ch:
		return l
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for child list")
		return nil
	}
}
