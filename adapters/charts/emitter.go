package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"salesprobe/domain/core"
	"salesprobe/internal"
	"salesprobe/internal/errors"
)

var chartName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Emitter writes one JSON document per chart into a directory.
type Emitter struct {
	dir    string
	logger *internal.Logger
}

// NewEmitter creates an emitter writing into dir, which is created on first use.
func NewEmitter(dir string) *Emitter {
	return &Emitter{dir: dir, logger: internal.DefaultLogger.With("Charts")}
}

// WithLogger replaces the emitter's logger.
func (e *Emitter) WithLogger(l *internal.Logger) *Emitter {
	e.logger = l
	return e
}

// Emit validates the spec and writes it to <dir>/<name>.json.
func (e *Emitter) Emit(ctx context.Context, name string, spec Spec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !chartName.MatchString(name) {
		return "", core.NewInvalidArgumentError(fmt.Sprintf("invalid chart name %q", name))
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode chart %s", name)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.IOError("failed to create chart directory", err)
	}
	path := filepath.Join(e.dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.IOError(fmt.Sprintf("failed to write chart %s", name), err)
	}
	e.logger.Debug("wrote %s chart %s", spec.Kind, path)
	return path, nil
}

// Named pairs a chart spec with its file name.
type Named struct {
	Name string
	Spec Spec
}

// EmitAll writes every chart and stops at the first error.
func (e *Emitter) EmitAll(ctx context.Context, charts []Named) ([]string, error) {
	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path, err := e.Emit(ctx, c.Name, c.Spec)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
