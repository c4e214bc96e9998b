package models

type ResultKind string

const (
	KindBus       ResultKind = "bus"
	KindIntercity ResultKind = "intercity"
)

// SearchResult is the projection returned by a search. It is never stored.
type SearchResult struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Kind    ResultKind `json:"type"`
	Zones   []string   `json:"zones,omitempty"`
	Agency  string     `json:"agency,omitempty"`
	Details string     `json:"details,omitempty"`
}
