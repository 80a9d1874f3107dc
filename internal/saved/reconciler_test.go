package saved

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/repository"
)

// memStore mimics the saved_movies table including its unique key.
type memStore struct {
	mu     sync.Mutex
	rows   map[string]model.SavedMovie
	reads  atomic.Int32
	delay  time.Duration
	failOn string
}

func newMemStore() *memStore { return &memStore{rows: map[string]model.SavedMovie{}} }

func (m *memStore) ListByUser(_ context.Context, userID string) ([]model.SavedMovie, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SavedMovie
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) FindByUserAndMovie(_ context.Context, userID string, movieID int64) (model.SavedMovie, error) {
	m.reads.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "find" {
		return model.SavedMovie{}, errors.New("store down")
	}
	for _, r := range m.rows {
		if r.UserID == userID && r.MovieID == movieID {
			return r, nil
		}
	}
	return model.SavedMovie{}, repository.ErrNotFound
}

func (m *memStore) Create(_ context.Context, rec model.SavedMovie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == rec.UserID && r.MovieID == rec.MovieID {
			return repository.ErrConflict
		}
	}
	m.rows[rec.ID] = rec
	return nil
}

func (m *memStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.UserID == userID {
		delete(m.rows, id)
	}
	return nil
}

func (m *memStore) count(userID string, movieID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.UserID == userID && r.MovieID == movieID {
			n++
		}
	}
	return n
}

var (
	alice     = &model.User{ID: "alice", Email: "alice@example.com"}
	inception = model.SaveRequest{ID: 27205, Title: "Inception", PosterPath: "/inception.jpg"}
)

func TestToggleSaveUnsaveSave(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, zerolog.Nop())
	ctx := context.Background()

	res := r.Toggle(ctx, alice, inception)
	assert.Equal(t, Result{Outcome: OutcomeSaved, Saved: true}, res)

	res = r.Toggle(ctx, alice, inception)
	assert.Equal(t, Result{Outcome: OutcomeUnsaved, Saved: false}, res)

	res = r.Toggle(ctx, alice, inception)
	assert.Equal(t, OutcomeSaved, res.Outcome)

	assert.Equal(t, 1, store.count("alice", inception.ID))
	saved, err := r.IsSaved(ctx, alice, inception.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	list, err := r.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/inception.jpg", list[0].PosterURL)
}

func TestAnonymousCallers(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, zerolog.Nop())
	ctx := context.Background()

	saved, err := r.IsSaved(ctx, nil, inception.ID)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, store.reads.Load(), "anonymous check must not read the store")

	for _, res := range []Result{
		r.Toggle(ctx, nil, inception),
		r.Save(ctx, nil, inception),
		r.Unsave(ctx, nil, "doc"),
	} {
		assert.Equal(t, OutcomeNotAuthenticated, res.Outcome)
		assert.Equal(t, MsgLoginRequired, res.Message)
	}

	list, err := r.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, store.reads.Load())
}

func TestUnsaveMissingRecordIsNoop(t *testing.T) {
	r := NewReconciler(newMemStore(), zerolog.Nop())
	res := r.Unsave(context.Background(), alice, "does-not-exist")
	assert.Equal(t, OutcomeUnsaved, res.Outcome)
	assert.Empty(t, res.Message)
}

func TestSaveDuplicate(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, zerolog.Nop())
	ctx := context.Background()

	require.Equal(t, OutcomeSaved, r.Save(ctx, alice, inception).Outcome)
	res := r.Save(ctx, alice, inception)
	assert.Equal(t, OutcomeAlreadyExists, res.Outcome)
	assert.True(t, res.Saved)
	assert.Equal(t, 1, store.count("alice", inception.ID))
}

// conflictStore reports "absent" on lookup but rejects the insert, as when a
// second writer wins between check and act.
type conflictStore struct{ *memStore }

func (c conflictStore) FindByUserAndMovie(context.Context, string, int64) (model.SavedMovie, error) {
	return model.SavedMovie{}, repository.ErrNotFound
}

func (c conflictStore) Create(context.Context, model.SavedMovie) error { return repository.ErrConflict }

func TestToggleInsertConflictFailsClosed(t *testing.T) {
	r := NewReconciler(conflictStore{newMemStore()}, zerolog.Nop())
	res := r.Toggle(context.Background(), alice, inception)
	assert.Equal(t, OutcomeAlreadyExists, res.Outcome)
	assert.True(t, res.Saved)
}

func TestToggleStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failOn = "find"
	r := NewReconciler(store, zerolog.Nop())

	res := r.Toggle(context.Background(), alice, inception)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.NotEmpty(t, res.Message)

	_, err := r.IsSaved(context.Background(), alice, inception.ID)
	assert.Error(t, err)
}

func TestConcurrentTogglesCollapse(t *testing.T) {
	store := newMemStore()
	store.delay = 30 * time.Millisecond
	r := NewReconciler(store, zerolog.Nop())

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Toggle(context.Background(), alice, inception)
		}(i)
	}
	wg.Wait()

	// however the taps interleave, the pair never ends up duplicated
	assert.LessOrEqual(t, store.count("alice", inception.ID), 1)
	for _, res := range results {
		assert.NotEqual(t, OutcomeFailed, res.Outcome)
	}
}

// blockingStore parks lookups until released or until the lookup's own
// context ends.
type blockingStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
}

func (b blockingStore) FindByUserAndMovie(ctx context.Context, userID string, movieID int64) (model.SavedMovie, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return model.SavedMovie{}, ctx.Err()
	}
	return b.memStore.FindByUserAndMovie(ctx, userID, movieID)
}

func TestToggleSurvivesFirstCallerCancel(t *testing.T) {
	store := blockingStore{memStore: newMemStore(), entered: make(chan struct{}, 4), release: make(chan struct{})}
	r := NewReconciler(store, zerolog.Nop())

	first, cancel := context.WithCancel(context.Background())
	firstRes := make(chan Result, 1)
	go func() { firstRes <- r.Toggle(first, alice, inception) }()
	<-store.entered

	secondRes := make(chan Result, 1)
	go func() { secondRes <- r.Toggle(context.Background(), alice, inception) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.Equal(t, OutcomeFailed, (<-firstRes).Outcome)

	close(store.release)
	res := <-secondRes
	assert.Equal(t, Result{Outcome: OutcomeSaved, Saved: true}, res)
	assert.Equal(t, 1, store.count("alice", inception.ID))
	assert.Len(t, store.entered, 0, "second caller joined the running toggle")
}
