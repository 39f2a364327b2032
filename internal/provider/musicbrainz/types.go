package musicbrainz

import "encoding/json"

// Metadata API response types. Only the fields the adapter reads are
// declared; the full artist object is kept as raw JSON.

// searchHit is one entry from GET /search?type=all. Album hits carry a
// non-null album object; artist hits leave it null or omit it.
type searchHit struct {
	Type   string          `json:"type"`
	Album  json.RawMessage `json:"album"`
	Artist json.RawMessage `json:"artist"`
}

// artistResult is the subset of a metadata API artist object used for
// identity. The same shape is returned by GET /artist/{id}.
type artistResult struct {
	ArtistID   string `json:"artistId"`
	ArtistName string `json:"artistName"`
	Type       string `json:"type"`
	Status     string `json:"status"`
}
