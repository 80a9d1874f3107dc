package model

// TrendingMovie mirrors a row of the `search_counts` table.  Rows are ranked
// by Count, which is incremented each time a search for SearchTerm returns
// at least one result.
type TrendingMovie struct {
	SearchTerm string `json:"search_term"`
	MovieID    int64  `json:"movie_id"`
	Title      string `json:"title"`
	PosterURL  string `json:"poster_url"`
	Count      int64  `json:"count"`
}
