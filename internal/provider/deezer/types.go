package deezer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// artistResult is a single artist entry from the catalog search or artist
// endpoint. Only identity fields are declared; the full object is kept raw.
type artistResult struct {
	ID   flexibleID `json:"id"`
	Name string     `json:"name"`
}

// flexibleID accepts both numeric and string ids, since the public API
// returns numbers while some catalog mirrors return strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("artist id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("artist id %s: %w", n, err)
	}
	*f = flexibleID(n.String())
	return nil
}

// searchResponse is the enveloped search shape of the public API. Catalog
// mirrors return a bare list instead; decodeSearch accepts both.
type searchResponse struct {
	Data  []json.RawMessage `json:"data"`
	Total int               `json:"total"`
	Next  string            `json:"next,omitempty"`
}
