package document

import (
	"bytes"
	"time"
)

// Status tracks where a document sits in the correction lifecycle.
// The backend only ever moves a document forward: pending -> validated.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
)

// Timestamp decodes the backend's upload timestamps, which come either as
// RFC 3339 or as a bare ISO datetime with no zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, string(data)); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Time.Format(time.RFC3339Nano) + `"`), nil
}

// Document is one ingested file as the registry reports it. The id is
// assigned by the backend at ingestion and never changes; the extraction
// map is whatever the extraction service produced and may be empty.
type Document struct {
	ID         int               `json:"id"`
	Filename   string            `json:"filename"`
	Status     Status            `json:"status"`
	UploadDate Timestamp         `json:"upload_date"`
	Extraction map[string]string `json:"ai_extraction"`
}

// Validated reports whether the document has already been committed.
func (d Document) Validated() bool {
	return d.Status == StatusValidated
}

// CloneExtraction returns an independent copy of the extraction snapshot.
// Sessions must edit a copy so the registry's record stays untouched; a
// nil or empty extraction yields an empty, non-nil map.
func (d Document) CloneExtraction() map[string]string {
	out := make(map[string]string, len(d.Extraction))
	for k, v := range d.Extraction {
		out[k] = v
	}
	return out
}
