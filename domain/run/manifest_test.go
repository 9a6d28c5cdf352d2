package run

import (
	"errors"
	"testing"
	"time"

	"salesprobe/domain/core"
)

func TestNewManifest(t *testing.T) {
	m := NewManifest("invoices.csv", core.NewHash([]byte("x")), "v0.1.0")
	if m.RunID == "" {
		t.Fatal("expected a run id")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("fresh manifest should validate: %v", err)
	}

	m.Record("normalize", 1500*time.Microsecond)
	if len(m.Stages) != 1 || m.Stages[0].DurationMs != 1.5 {
		t.Errorf("unexpected stages: %+v", m.Stages)
	}

	m.Finish()
	if err := m.Validate(); err != nil {
		t.Fatalf("finished manifest should validate: %v", err)
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"empty run id", func(m *Manifest) { m.RunID = "" }},
		{"empty source", func(m *Manifest) { m.Source = "" }},
		{"empty code version", func(m *Manifest) { m.CodeVersion = "" }},
		{"finished early", func(m *Manifest) { m.FinishedAt = m.StartedAt.Add(-time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManifest("invoices.csv", "", "v0.1.0")
			tt.mutate(m)
			err := m.Validate()
			if !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}
