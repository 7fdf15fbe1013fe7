package document

import (
	"encoding/json"
	"testing"
)

func TestTimestampDecodesNaiveAndRFC3339(t *testing.T) {
	cases := map[string]string{
		"naive":   `{"id":1,"upload_date":"2026-08-30T09:15:00.123456"}`,
		"rfc3339": `{"id":1,"upload_date":"2026-08-30T09:15:00Z"}`,
	}
	for name, payload := range cases {
		var d Document
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if d.UploadDate.IsZero() {
			t.Fatalf("%s: expected a parsed timestamp", name)
		}
		if d.UploadDate.Year() != 2026 || d.UploadDate.Hour() != 9 {
			t.Fatalf("%s: wrong timestamp %v", name, d.UploadDate)
		}
	}
}

func TestTimestampDecodesNull(t *testing.T) {
	var d Document
	if err := json.Unmarshal([]byte(`{"id":1,"upload_date":null}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.UploadDate.IsZero() {
		t.Fatalf("null must decode to the zero time, got %v", d.UploadDate)
	}
}

func TestCloneExtractionIsIndependent(t *testing.T) {
	d := Document{Extraction: map[string]string{"name": "Jon"}}
	clone := d.CloneExtraction()
	clone["name"] = "John"
	if d.Extraction["name"] != "Jon" {
		t.Fatalf("clone mutation reached the original: %q", d.Extraction["name"])
	}
}

func TestCloneExtractionNilSnapshot(t *testing.T) {
	var d Document
	clone := d.CloneExtraction()
	if clone == nil {
		t.Fatalf("clone of an absent snapshot must be a non-nil empty map")
	}
	if len(clone) != 0 {
		t.Fatalf("expected empty clone, got %v", clone)
	}
}

func TestValidated(t *testing.T) {
	if (Document{Status: StatusPending}).Validated() {
		t.Fatalf("pending document must not report validated")
	}
	if !(Document{Status: StatusValidated}).Validated() {
		t.Fatalf("validated document must report validated")
	}
}
