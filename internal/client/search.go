package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/debounce"
	"github.com/iliyamo/movie-explorer/internal/fetch"
	"github.com/iliyamo/movie-explorer/internal/model"
)

// Searcher is the part of Client the search screen needs.
type Searcher interface {
	SearchMovies(ctx context.Context, query string) ([]model.Movie, error)
	RecordSearch(ctx context.Context, query string, movie model.Movie) error
}

// SearchView is what the search screen renders.
type SearchView struct {
	Query   string
	Movies  []model.Movie
	Loading bool
	Err     string
}

// SearchModel debounces typed queries, runs the search once the input is
// quiet and counts each distinct non-empty query once per model lifetime,
// using its first result.
type SearchModel struct {
	api      Searcher
	log      zerolog.Logger
	ctx      context.Context
	onUpdate func(SearchView)

	relay *debounce.Relay
	res   *fetch.Resource[[]model.Movie]

	mu      sync.Mutex
	query   string
	counted map[string]struct{}
}

type SearchOption func(*searchOptions)

type searchOptions struct {
	delay    time.Duration
	onUpdate func(SearchView)
}

// WithSearchDelay overrides the quiet period before a search runs.
func WithSearchDelay(d time.Duration) SearchOption {
	return func(o *searchOptions) { o.delay = d }
}

// WithSearchUpdates registers a callback invoked with every new view.
func WithSearchUpdates(fn func(SearchView)) SearchOption {
	return func(o *searchOptions) { o.onUpdate = fn }
}

// NewSearchModel builds the model.  ctx bounds every search and count it
// issues; cancel it, or call Close, when the screen goes away.
func NewSearchModel(ctx context.Context, api Searcher, log zerolog.Logger, opts ...SearchOption) *SearchModel {
	o := searchOptions{delay: debounce.DefaultDelay}
	for _, opt := range opts {
		opt(&o)
	}
	m := &SearchModel{
		api:      api,
		log:      log,
		ctx:      ctx,
		onUpdate: o.onUpdate,
		counted:  map[string]struct{}{},
	}
	m.res = fetch.New[[]model.Movie](m.search, fetch.OnChange[[]model.Movie](func(fetch.State[[]model.Movie]) { m.publish() }))
	m.relay = debounce.NewRelay("", m.run, debounce.WithDelay(o.delay))
	return m
}

// Type records an edit of the search box.
func (m *SearchModel) Type(text string) {
	_ = m.relay.Set(text)
}

// Close cancels any pending search.
func (m *SearchModel) Close() {
	m.relay.Close()
}

// View returns the current rendering state.  Results are hidden while the
// query is blank.
func (m *SearchModel) View() SearchView {
	st := m.res.Snapshot()
	m.mu.Lock()
	q := m.query
	m.mu.Unlock()

	v := SearchView{Query: q, Loading: st.Loading, Err: st.Err}
	if strings.TrimSpace(q) != "" {
		v.Movies = st.Data
	}
	return v
}

func (m *SearchModel) search(ctx context.Context) ([]model.Movie, error) {
	m.mu.Lock()
	q := m.query
	m.mu.Unlock()
	return m.api.SearchMovies(ctx, q)
}

// run is called by the relay after the quiet period.
func (m *SearchModel) run(q string) {
	m.mu.Lock()
	m.query = q
	m.mu.Unlock()

	if strings.TrimSpace(q) == "" {
		m.publish()
		return
	}
	st := m.res.Refetch(m.ctx)

	m.mu.Lock()
	current := m.query == q
	_, seen := m.counted[q]
	count := current && !seen && st.Err == "" && len(st.Data) > 0
	if count {
		m.counted[q] = struct{}{}
	}
	m.mu.Unlock()

	if count {
		if err := m.api.RecordSearch(m.ctx, q, st.Data[0]); err != nil {
			m.log.Warn().Err(err).Str("query", q).Msg("failed to update search count")
		}
	}
}

func (m *SearchModel) publish() {
	if m.onUpdate != nil {
		m.onUpdate(m.View())
	}
}
