package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/model"
)

type recordedSearch struct {
	query string
	movie model.Movie
}

type fakeSearcher struct {
	mu       sync.Mutex
	searches []string
	records  []recordedSearch
	results  map[string][]model.Movie
	fail     error
}

func (f *fakeSearcher) SearchMovies(_ context.Context, q string) ([]model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	if f.fail != nil {
		return nil, f.fail
	}
	return f.results[q], nil
}

func (f *fakeSearcher) RecordSearch(_ context.Context, q string, m model.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedSearch{q, m})
	return nil
}

func (f *fakeSearcher) snapshot() ([]string, []recordedSearch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...), append([]recordedSearch(nil), f.records...)
}

const testDelay = 40 * time.Millisecond

var (
	inception    = model.Movie{ID: 27205, Title: "Inception"}
	interstellar = model.Movie{ID: 157336, Title: "Interstellar"}
)

func TestSearchDebouncesAndCountsOnce(t *testing.T) {
	api := &fakeSearcher{results: map[string][]model.Movie{
		"Inception": {inception, interstellar},
	}}
	m := NewSearchModel(context.Background(), api, zerolog.Nop(), WithSearchDelay(testDelay))
	defer m.Close()

	m.Type("I")
	m.Type("Incep")
	m.Type("Inception")

	searches, _ := api.snapshot()
	assert.Empty(t, searches, "nothing runs before the input is quiet")

	require.Eventually(t, func() bool {
		_, recs := api.snapshot()
		return len(recs) == 1
	}, time.Second, 5*time.Millisecond)

	searches, recs := api.snapshot()
	assert.Equal(t, []string{"Inception"}, searches)
	assert.Equal(t, recordedSearch{"Inception", inception}, recs[0])

	v := m.View()
	assert.Equal(t, "Inception", v.Query)
	assert.Equal(t, []model.Movie{inception, interstellar}, v.Movies)
	assert.False(t, v.Loading)

	// typing the same query again searches but does not count again
	m.Type("Inceptio")
	m.Type("Inception")
	time.Sleep(3 * testDelay)
	_, recs = api.snapshot()
	assert.Len(t, recs, 1)
}

func TestSearchBlankQueryClearsResults(t *testing.T) {
	api := &fakeSearcher{results: map[string][]model.Movie{"Inception": {inception}}}

	var mu sync.Mutex
	var views []SearchView
	m := NewSearchModel(context.Background(), api, zerolog.Nop(),
		WithSearchDelay(testDelay),
		WithSearchUpdates(func(v SearchView) {
			mu.Lock()
			views = append(views, v)
			mu.Unlock()
		}),
	)
	defer m.Close()

	m.Type("Inception")
	require.Eventually(t, func() bool { return len(m.View().Movies) == 1 }, time.Second, 5*time.Millisecond)

	m.Type("   ")
	require.Eventually(t, func() bool { return m.View().Query == "   " }, time.Second, 5*time.Millisecond)
	assert.Empty(t, m.View().Movies)

	searches, _ := api.snapshot()
	assert.Equal(t, []string{"Inception"}, searches, "blank input does not search")

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, views)
}

func TestSearchWithoutResultsIsNotCounted(t *testing.T) {
	api := &fakeSearcher{results: map[string][]model.Movie{}}
	m := NewSearchModel(context.Background(), api, zerolog.Nop(), WithSearchDelay(testDelay))
	defer m.Close()

	m.Type("zzzz")
	require.Eventually(t, func() bool {
		s, _ := api.snapshot()
		return len(s) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(testDelay)

	_, recs := api.snapshot()
	assert.Empty(t, recs)
}

func TestSearchErrorSurfaces(t *testing.T) {
	api := &fakeSearcher{fail: errors.New("tmdb unavailable")}
	m := NewSearchModel(context.Background(), api, zerolog.Nop(), WithSearchDelay(testDelay))
	defer m.Close()

	m.Type("Inception")
	require.Eventually(t, func() bool { return m.View().Err != "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "tmdb unavailable", m.View().Err)

	_, recs := api.snapshot()
	assert.Empty(t, recs)
}

func TestSearchCloseCancelsPending(t *testing.T) {
	api := &fakeSearcher{}
	m := NewSearchModel(context.Background(), api, zerolog.Nop(), WithSearchDelay(testDelay))

	m.Type("Inception")
	m.Close()
	time.Sleep(3 * testDelay)

	searches, _ := api.snapshot()
	assert.Empty(t, searches)
}
