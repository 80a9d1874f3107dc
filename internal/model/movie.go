package model

// PosterBaseURL is the TMDB image endpoint used for stored poster links.
const PosterBaseURL = "https://image.tmdb.org/t/p/w500"

// Movie is a search/list entry returned by the metadata service.  It is a
// read-only snapshot; nothing here is persisted except through SavedMovie or
// TrendingMovie projections.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
}

// PosterURL returns the absolute poster link for the movie, or "" when the
// movie has no poster.
func (m Movie) PosterURL() string {
	return PosterURL(m.PosterPath)
}

// PosterURL joins a TMDB poster path onto PosterBaseURL.
func PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return PosterBaseURL + path
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany is a studio credited on a movie.
type ProductionCompany struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// MovieDetails is the full record returned by the get-by-id call.
type MovieDetails struct {
	Movie
	Tagline             string              `json:"tagline,omitempty"`
	Status              string              `json:"status,omitempty"`
	Runtime             int                 `json:"runtime"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	VoteCount           int                 `json:"vote_count"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
}
