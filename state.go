package paperless

import (
	"encoding/json"
	"time"
)

// Attribute keys of the published entity state.
const (
	AttrTodoTagName        = "document_todo_tag_name"
	AttrTodoCount          = "document_todo_count"
	AttrTodo               = "document_todo"
	AttrTags               = "document_tags"
	AttrTagCount           = "document_tag_count"
	AttrTotalDocumentCount = "document_total_count"
)

// State is the snapshot produced by one refresh cycle.
//
// A State is rebuilt from scratch on every refresh. Optional fields use nil
// for "absent": a nil count is not the same as a count of zero.
type State struct {
	// Status is the connectivity status folded over every fetch of the cycle.
	Status Status

	// TotalDocumentCount is the "count" of /api/documents/. Nil if that
	// fetch failed.
	TotalDocumentCount *int

	// TagNames maps tag id to tag name. Nil if the tag fetch failed.
	TagNames map[int]string

	// TagDocumentCounts maps tag id to its document count. Nil if the tag
	// fetch failed.
	TagDocumentCounts map[int]int

	// TodoTagName is the configured to-do tag name, empty if none.
	TodoTagName string

	// TodoDocumentCount is the matched to-do tag's document count. Nil unless
	// a to-do tag is configured and exists in the current tag list.
	TodoDocumentCount *int

	// TodoDocuments lists the to-do documents, content stripped, sorted
	// ascending by creation time. Nil unless the tag matched and the
	// filtered fetch succeeded.
	TodoDocuments []Document

	// CheckedAt is when the refresh finished.
	CheckedAt time.Time
}

// Attributes returns the published attribute mapping. Absent fields are
// absent keys.
func (s State) Attributes() map[string]any {
	attrs := make(map[string]any, 6)
	if s.TodoTagName != "" {
		attrs[AttrTodoTagName] = s.TodoTagName
	}
	if s.TodoDocumentCount != nil {
		attrs[AttrTodoCount] = *s.TodoDocumentCount
	}
	if s.TodoDocuments != nil {
		attrs[AttrTodo] = s.TodoDocuments
	}
	if s.TagNames != nil {
		attrs[AttrTags] = s.TagNames
	}
	if s.TagDocumentCounts != nil {
		attrs[AttrTagCount] = s.TagDocumentCounts
	}
	if s.TotalDocumentCount != nil {
		attrs[AttrTotalDocumentCount] = *s.TotalDocumentCount
	}
	return attrs
}

// MarshalJSON encodes the state as {"state": ..., "attributes": {...}, "checked_at": ...}.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State      Status         `json:"state"`
		Attributes map[string]any `json:"attributes"`
		CheckedAt  time.Time      `json:"checked_at"`
	}{
		State:      s.Status,
		Attributes: s.Attributes(),
		CheckedAt:  s.CheckedAt,
	})
}
