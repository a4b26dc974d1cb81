package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names used in Article records.
const (
	FieldTitle        = "title"
	FieldURL          = "url"
	FieldURLPDF       = "url_pdf"
	FieldYear         = "year"
	FieldNumCitations = "num_citations"
	FieldURLCitations = "url_citations"
	FieldClusterID    = "cluster_id"
	FieldNumVersions  = "num_versions"
	FieldURLVersions  = "url_versions"
)

// Article is one bibliographic record extracted from a search-results page.
// Fields holds the extracted values; absent keys mean the page did not carry
// that piece of data. An Article is only worth emitting when it has a title.
type Article struct {
	// Fields stores the extracted field values by name.
	Fields map[string]any

	// SourceURL is the results-page URL this record was extracted from.
	SourceURL string

	// Position is the zero-based index of the result on its page.
	Position int

	// ParsedAt is when this record was created.
	ParsedAt time.Time
}

// NewArticle creates an empty Article for the given source page.
func NewArticle(sourceURL string) *Article {
	return &Article{
		Fields:    make(map[string]any),
		SourceURL: sourceURL,
		ParsedAt:  time.Now(),
	}
}

// Set sets a field value.
func (a *Article) Set(key string, value any) {
	a.Fields[key] = value
}

// Get retrieves a field value.
func (a *Article) Get(key string) (any, bool) {
	v, ok := a.Fields[key]
	return v, ok
}

// GetString retrieves a field value as a string, or "" if absent.
func (a *Article) GetString(key string) string {
	s, _ := a.Fields[key].(string)
	return s
}

// GetInt retrieves a field value as an int. The second return is false
// when the field is absent or not an integer.
func (a *Article) GetInt(key string) (int, bool) {
	n, ok := a.Fields[key].(int)
	return n, ok
}

// Has returns true if the field exists.
func (a *Article) Has(key string) bool {
	_, ok := a.Fields[key]
	return ok
}

// Delete removes a field.
func (a *Article) Delete(key string) {
	delete(a.Fields, key)
}

// Keys returns all field names present on the record.
func (a *Article) Keys() []string {
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	return keys
}

// AppendClusterID appends an identifier to the cluster_id sequence.
func (a *Article) AppendClusterID(id string) {
	ids, _ := a.Fields[FieldClusterID].([]string)
	a.Fields[FieldClusterID] = append(ids, id)
}

// ClusterIDs returns the cluster_id sequence, or nil if unset.
func (a *Article) ClusterIDs() []string {
	ids, _ := a.Fields[FieldClusterID].([]string)
	return ids
}

// Title returns the record's title, or "" if unset.
func (a *Article) Title() string {
	return a.GetString(FieldTitle)
}

// Valid reports whether the record carries a non-empty title.
func (a *Article) Valid() bool {
	return a.GetString(FieldTitle) != ""
}

// ToJSON serializes the record to JSON bytes.
func (a *Article) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fields    map[string]any `json:"fields"`
		SourceURL string         `json:"source_url,omitempty"`
		Position  int            `json:"position"`
		ParsedAt  time.Time      `json:"parsed_at"`
	}{
		Fields:    a.Fields,
		SourceURL: a.SourceURL,
		Position:  a.Position,
		ParsedAt:  a.ParsedAt,
	})
}

// ToFlatMap returns a flat string map suitable for CSV export.
func (a *Article) ToFlatMap() map[string]string {
	flat := make(map[string]string, len(a.Fields)+2)
	flat["_source_url"] = a.SourceURL
	flat["_parsed_at"] = a.ParsedAt.Format(time.RFC3339)

	for k, v := range a.Fields {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case int:
			flat[k] = fmt.Sprintf("%d", val)
		default:
			b, _ := json.Marshal(val)
			flat[k] = string(b)
		}
	}
	return flat
}

// Clone creates a deep copy of the record.
func (a *Article) Clone() *Article {
	clone := &Article{
		Fields:    make(map[string]any, len(a.Fields)),
		SourceURL: a.SourceURL,
		Position:  a.Position,
		ParsedAt:  a.ParsedAt,
	}
	for k, v := range a.Fields {
		if ids, ok := v.([]string); ok {
			clone.Fields[k] = append([]string(nil), ids...)
			continue
		}
		clone.Fields[k] = v
	}
	return clone
}
