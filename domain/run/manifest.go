package run

import (
	"time"

	"salesprobe/domain/core"
)

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage      string  `json:"stage" yaml:"stage"`
	DurationMs float64 `json:"duration_ms" yaml:"duration_ms"`
}

// Manifest is the audit record of one analysis run.
type Manifest struct {
	RunID       core.RunID    `json:"run_id" yaml:"run_id"`
	Source      string        `json:"source" yaml:"source"`
	InputHash   core.Hash     `json:"input_hash,omitempty" yaml:"input_hash,omitempty"`
	RawRows     int           `json:"raw_rows" yaml:"raw_rows"`
	DerivedRows int           `json:"derived_rows" yaml:"derived_rows"`
	Stages      []StageTiming `json:"stages" yaml:"stages"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time     `json:"finished_at" yaml:"finished_at"`
	CodeVersion string        `json:"code_version" yaml:"code_version"`
}

// NewManifest starts a manifest for a run over the named source.
func NewManifest(source string, inputHash core.Hash, codeVersion string) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Source:      source,
		InputHash:   inputHash,
		StartedAt:   time.Now().UTC(),
		CodeVersion: codeVersion,
	}
}

// Record appends a stage timing.
func (m *Manifest) Record(stage string, d time.Duration) {
	m.Stages = append(m.Stages, StageTiming{Stage: stage, DurationMs: float64(d.Nanoseconds()) / 1e6})
}

// Finish stamps the completion time.
func (m *Manifest) Finish() {
	m.FinishedAt = time.Now().UTC()
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if m.RunID.IsEmpty() {
		return core.NewInvalidArgumentError("run manifest: run_id cannot be empty")
	}
	if m.Source == "" {
		return core.NewInvalidArgumentError("run manifest: source cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewInvalidArgumentError("run manifest: code_version cannot be empty")
	}
	if !m.FinishedAt.IsZero() && m.FinishedAt.Before(m.StartedAt) {
		return core.NewInvalidArgumentError("run manifest: finished before it started")
	}
	return nil
}
