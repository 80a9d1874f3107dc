// Package trending reads and maintains the per-term search counters behind
// the home screen's trending row.
package trending

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/queue"
)

// Limit is the number of trending entries returned.
const Limit = 5

// MaxTermLength is the longest search term, in runes, the counter table
// holds.
const MaxTermLength = 255

// ErrTermTooLong is returned by Record for a query over MaxTermLength.
var ErrTermTooLong = errors.New("search term too long")

type Counts interface {
	Increment(ctx context.Context, term string, movie model.Movie) error
	Top(ctx context.Context, limit int) ([]model.TrendingMovie, error)
}

// Publisher defers counter updates to the broker.
type Publisher interface {
	PublishSearchRecorded(ctx context.Context, ev queue.SearchRecordedEvent) error
}

type Service struct {
	counts Counts
	pub    Publisher
	log    zerolog.Logger
}

// NewService returns a trending service.  pub may be nil, in which case
// Record writes the counter directly.
func NewService(counts Counts, pub Publisher, log zerolog.Logger) *Service {
	if counts == nil {
		panic("nil counts passed to trending.NewService")
	}
	return &Service{counts: counts, pub: pub, log: log}
}

// Trending returns at most Limit counters, highest count first.  A store
// failure is logged and reported as nil so callers render an empty row.
func (s *Service) Trending(ctx context.Context) []model.TrendingMovie {
	rows, err := s.counts.Top(ctx, Limit)
	if err != nil {
		s.log.Error().Err(err).Msg("load trending movies")
		return nil
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if len(rows) > Limit {
		rows = rows[:Limit]
	}
	return rows
}

// Record counts one search for query whose first result is movie.  Blank
// queries are ignored.
func (s *Service) Record(ctx context.Context, query string, movie model.Movie, correlationID string) error {
	term := strings.TrimSpace(query)
	if term == "" {
		return nil
	}
	if utf8.RuneCountInString(term) > MaxTermLength {
		return ErrTermTooLong
	}
	if s.pub != nil {
		err := s.pub.PublishSearchRecorded(ctx, queue.SearchRecordedEvent{
			SearchTerm:    term,
			Movie:         movie,
			CorrelationID: correlationID,
		})
		if err == nil {
			return nil
		}
		s.log.Warn().Err(err).Str("term", term).Msg("publish search failed; counting inline")
	}
	return s.counts.Increment(ctx, term, movie)
}

// Apply is the search.recorded consumer: it performs the increment a
// published event stands for.
func (s *Service) Apply(ctx context.Context, ev queue.SearchRecordedEvent) error {
	term := strings.TrimSpace(ev.SearchTerm)
	if term == "" {
		return nil
	}
	if utf8.RuneCountInString(term) > MaxTermLength {
		s.log.Warn().Str("correlation_id", ev.CorrelationID).Int("runes", utf8.RuneCountInString(term)).Msg("dropping over-long search term")
		return nil
	}
	if err := s.counts.Increment(ctx, term, ev.Movie); err != nil {
		return err
	}
	s.log.Debug().Str("term", term).Str("correlation_id", ev.CorrelationID).Msg("search counted")
	return nil
}
