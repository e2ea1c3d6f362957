package paperless

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Tag is a Paperless-NG tag as returned by /api/tags/.
type Tag struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

// Document is a Paperless-NG document as returned by /api/documents/.
//
// Only the fields the sensor reads are typed. Every other field of the API
// response is kept verbatim in Extra so the published to-do list carries the
// document exactly as the server sent it, minus its content.
type Document struct {
	ID    int
	Title string

	// Created is the raw "created" value. Paperless-NG sends an ISO 8601
	// string; numeric Unix timestamps are accepted as well.
	Created json.RawMessage

	Tags []int

	// Content is the OCR text. Nil when absent or stripped.
	Content *string

	// Extra holds all remaining fields of the response object.
	Extra map[string]json.RawMessage

	// raw id, title and tags as received, nil when the field was absent
	rawID, rawTitle, rawTags json.RawMessage
}

var typedDocumentFields = []string{"id", "title", "created", "tags", "content"}

// UnmarshalJSON decodes a document, keeping unknown fields in Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var typed struct {
		ID      int             `json:"id"`
		Title   string          `json:"title"`
		Created json.RawMessage `json:"created"`
		Tags    []int           `json:"tags"`
		Content *string         `json:"content"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	rawID, rawTitle, rawTags := extra["id"], extra["title"], extra["tags"]
	for _, k := range typedDocumentFields {
		delete(extra, k)
	}

	*d = Document{
		ID:       typed.ID,
		Title:    typed.Title,
		Created:  typed.Created,
		Tags:     typed.Tags,
		Content:  typed.Content,
		Extra:    extra,
		rawID:    rawID,
		rawTitle: rawTitle,
		rawTags:  rawTags,
	}
	return nil
}

// MarshalJSON encodes the document as a single flat object.
//
// A zero id, empty title or nil tags set in code is written only when the
// decoded document carried the field, and then with its received value,
// so absent fields stay absent and a null stays null.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+len(typedDocumentFields))
	for k, v := range d.Extra {
		out[k] = v
	}
	setField(out, "id", d.ID, d.ID != 0, d.rawID)
	setField(out, "title", d.Title, d.Title != "", d.rawTitle)
	setField(out, "tags", d.Tags, d.Tags != nil, d.rawTags)
	if len(d.Created) > 0 {
		out["created"] = d.Created
	}
	if d.Content != nil {
		out["content"] = *d.Content
	}
	return json.Marshal(out)
}

func setField(out map[string]any, key string, v any, set bool, raw json.RawMessage) {
	switch {
	case set:
		out[key] = v
	case raw != nil:
		out[key] = raw
	}
}

// StripContent returns a copy of the document without its content field.
func (d Document) StripContent() Document {
	d.Content = nil
	if _, ok := d.Extra["content"]; ok {
		extra := make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			if k != "content" {
				extra[k] = v
			}
		}
		d.Extra = extra
	}
	return d
}

// createdFormats are the layouts Paperless-NG has used for "created".
var createdFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// CreatedAt parses Created. ok is false when the value is missing or unparsable.
func (d Document) CreatedAt() (t time.Time, ok bool) {
	raw := bytes.TrimSpace(d.Created)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		for _, layout := range createdFormats {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	}

	secs, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, false
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*float64(time.Second))).UTC(), true
}

// sortByCreated sorts documents ascending by creation time, in place.
// Documents with an unparsable timestamp go last, ordered by their raw
// value; the sort is stable so equal timestamps keep server order.
func sortByCreated(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, iok := docs[i].CreatedAt()
		tj, jok := docs[j].CreatedAt()
		switch {
		case iok && jok:
			return ti.Before(tj)
		case iok != jok:
			return iok
		default:
			return string(docs[i].Created) < string(docs[j].Created)
		}
	})
}

// documentPage is the envelope of /api/documents/.
type documentPage struct {
	Count   int        `json:"count"`
	Results []Document `json:"results"`
}

// tagPage is the envelope of /api/tags/.
type tagPage struct {
	Count   int   `json:"count"`
	Results []Tag `json:"results"`
}

// findTag returns the first tag whose name equals name exactly.
func findTag(tags []Tag, name string) (Tag, bool) {
	for _, t := range tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}
