package mojo

import "testing"

func TestTranscriptPreservesArrivalOrder(t *testing.T) {
	tr := NewTranscript()
	tr.Append("hey", true)
	tr.Append("hey yourself", false)
	tr.Append("rude", true)

	entries := tr.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries=%d want 3", len(entries))
	}
	wantContent := []string{"hey", "hey yourself", "rude"}
	wantUser := []bool{true, false, true}
	for i, e := range entries {
		if e.Content != wantContent[i] || e.IsUser != wantUser[i] {
			t.Fatalf("entry[%d]=%+v", i, e)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Fatalf("entry[%d] missing ID or timestamp", i)
		}
	}
	if entries[0].ID == entries[1].ID {
		t.Fatalf("entry IDs must be unique")
	}
}

func TestTranscriptEntriesReturnsCopy(t *testing.T) {
	tr := NewTranscript()
	tr.Append("original", true)

	snapshot := tr.Entries()
	snapshot[0].Content = "tampered"

	if got := tr.Entries()[0].Content; got != "original" {
		t.Fatalf("content=%q, snapshot mutation leaked into the log", got)
	}
	if tr.Len() != 1 {
		t.Fatalf("len=%d want 1", tr.Len())
	}
}
