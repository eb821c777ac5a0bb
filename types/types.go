// Package types defines the data structures used in the short link service.
package types

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for persisted timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ShortURLMode selects how the short URL is derived from an id.
type ShortURLMode string

const (
	// ShortURLModeMirrorOrigin builds {scheme}://{host}/{id} from the original URL.
	ShortURLModeMirrorOrigin ShortURLMode = "mirror-origin"
	// ShortURLModeFixedBase builds {baseURL}/{id}.
	ShortURLModeFixedBase ShortURLMode = "fixed-base"
)

// VisitsMode selects the persisted shape of the visits field.
type VisitsMode string

const (
	VisitsCounter VisitsMode = "counter"
	VisitsList    VisitsMode = "list"
)

// ShortLink is the mapping between a short id and its original URL.
type ShortLink struct {
	ID          string
	OriginalURL string
	ShortURL    string
	CreatedAt   time.Time
	VisitCount  int
}

// ShortLinkResponse represents the response structure for short link operations.
type ShortLinkResponse struct {
	ID          string    `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortURL    string    `json:"short_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewShortLinkResponse converts a ShortLink into its wire representation.
func NewShortLinkResponse(link ShortLink) ShortLinkResponse {
	return ShortLinkResponse{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortURL:    link.ShortURL,
		CreatedAt:   link.CreatedAt,
	}
}

// requestURLKeys lists the accepted body keys in priority order.
var requestURLKeys = []string{"url", "link", "link_og"}

// LinkRequest is the decoded body of a create request.
type LinkRequest map[string]any

// OriginalURL returns the first set value among url, link and link_og.
// A set value that is not a string yields "", so the request fails validation
// instead of falling through to the next key.
func (r LinkRequest) OriginalURL() string {
	for _, key := range requestURLKeys {
		v := r[key]
		if !isSet(v) {
			continue
		}
		s, _ := v.(string)
		return s
	}
	return ""
}

// isSet reports whether a decoded JSON value is non-empty: null, false, 0 and ""
// count as unset.
func isSet(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// Record is the persisted shape of a ShortLink.
type Record struct {
	ID        string `json:"id" dynamodbav:"id"`
	LinkOG    string `json:"link_og" dynamodbav:"link_og"`
	LinkShort string `json:"link_short" dynamodbav:"link_short"`
	Visits    any    `json:"visits" dynamodbav:"visits"`
	Timestamp string `json:"timestamp" dynamodbav:"timestamp"`
}

// NewRecord builds the persisted record for link, shaping visits per mode.
func NewRecord(link ShortLink, mode VisitsMode) Record {
	var visits any = link.VisitCount
	if mode == VisitsList {
		visits = make([]string, 0, link.VisitCount)
	}
	return Record{
		ID:        link.ID,
		LinkOG:    link.OriginalURL,
		LinkShort: link.ShortURL,
		Visits:    visits,
		Timestamp: link.CreatedAt.UTC().Format(TimestampLayout),
	}
}

// ShortLink converts the record back into a ShortLink.
func (r Record) ShortLink() (ShortLink, error) {
	createdAt, err := time.Parse(TimestampLayout, r.Timestamp)
	if err != nil {
		return ShortLink{}, err
	}
	return ShortLink{
		ID:          r.ID,
		OriginalURL: r.LinkOG,
		ShortURL:    r.LinkShort,
		CreatedAt:   createdAt,
		VisitCount:  VisitCount(r.Visits),
	}, nil
}

// VisitCount reads a visits value stored either as a counter or as a list.
func VisitCount(v any) int {
	switch visits := v.(type) {
	case int:
		return visits
	case int64:
		return int(visits)
	case float64:
		return int(visits)
	case json.Number:
		n, _ := visits.Int64()
		return int(n)
	case []string:
		return len(visits)
	case []any:
		return len(visits)
	default:
		return 0
	}
}
