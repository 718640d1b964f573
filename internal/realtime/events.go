// Package realtime turns database change notifications into cache
// invalidations for the episode a view is watching.
package realtime

// Record is the subset of a changed row the dispatch policy needs.
type Record struct {
	ID     int64  `json:"id"`
	Slug   string `json:"episode_slug"`
	Lang   string `json:"lang"`
	Status string `json:"status"`
}

// ChangeEvent is one database change notification.
type ChangeEvent struct {
	Table string // "questions" or "transcripts"
	Type  string // "INSERT", "UPDATE", "DELETE"
	Old   Record // zero for INSERT
	New   Record // zero for DELETE
}

// Filter scopes a subscription to one table and episode.
type Filter struct {
	Table string
	Slug  string
}

// Stream is a source of change events. Subscribe returns a receive channel
// and a cancel function; cancel must be idempotent.
type Stream interface {
	Subscribe(f Filter) (<-chan ChangeEvent, func())
}
