package domain

// Movie is one movie-catalog item, trimmed to the fields the app renders.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Overview    string  `json:"overview,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
}

// Track is one music-catalog item.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// MovieListResponse is a movie search/trending result page.
type MovieListResponse struct {
	Results []Movie `json:"results"`
}

// TrackListResponse is a track search/top-tracks result page.
type TrackListResponse struct {
	Tracks []Track `json:"tracks"`
}

// CatalogSearchRequest carries a catalog text query.
type CatalogSearchRequest struct {
	Query string `form:"q"`
}

// TrendingRequest selects the trending window.
type TrendingRequest struct {
	Window string `form:"time"`
}
