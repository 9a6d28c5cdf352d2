package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRunIDUniqueAndOrdered(t *testing.T) {
	const n = 10000

	seen := make(map[RunID]bool, n)
	var prev RunID
	for i := 0; i < n; i++ {
		id := NewRunID()
		if id.IsEmpty() {
			t.Fatalf("empty run id at iteration %d", i)
		}
		if seen[id] {
			t.Fatalf("duplicate run id: %s", id)
		}
		if id.String() < prev.String() {
			t.Errorf("run id %s sorts before previous %s", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestRunIDTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts := NewRunID().Time()
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("run id time %s is not close to now", ts)
	}
	if !RunID("not-a-uuid").Time().IsZero() {
		t.Error("invalid id should have zero time")
	}
}

func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		hasError bool
	}{
		{NewRunID().String(), false},
		{"", true},
		{"   ", true},
		{"not-a-uuid", true},
	}

	for _, test := range tests {
		_, err := ParseRunID(test.input)
		if err != nil && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for %q, got %v", test.input, err)
		}
		if test.hasError && err == nil {
			t.Errorf("Expected error for input %q", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input %q: %v", test.input, err)
		}
	}
}

func TestHashReader(t *testing.T) {
	h, err := HashReader(strings.NewReader("invoice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != NewHash([]byte("invoice")) {
		t.Errorf("HashReader and NewHash disagree: %s", h)
	}
	path := filepath.Join(t.TempDir(), "invoices.csv")
	if err := os.WriteFile(path, []byte("invoice"), 0o644); err != nil {
		t.Fatal(err)
	}
	fromFile, err := HashFile(path)
	if err != nil || fromFile != h {
		t.Errorf("HashFile = %s, %v; want %s", fromFile, err, h)
	}
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	if len(h.Short()) != 12 {
		t.Errorf("Short() = %q", h.Short())
	}
}

func TestFieldErrorUnwrap(t *testing.T) {
	err := NewParseError("invoicedate", 3, "yesterday", "unrecognized layout")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !IsInputError(err) {
		t.Error("parse errors are input errors")
	}
	msg := err.Error()
	for _, want := range []string{"invoicedate", "row 3", "yesterday"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	missing := NewMissingFieldError("quantity")
	if strings.Contains(missing.Error(), "row") {
		t.Errorf("missing field error should not mention a row: %s", missing)
	}
}
