package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunID identifies one analysis run. Ids are UUID v7, so they sort by start time.
type RunID string

// NewRunID creates a time-ordered run identifier.
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RunID(id.String())
}

func (id RunID) String() string {
	return string(id)
}

func (id RunID) IsEmpty() bool {
	return id == ""
}

// Time returns the creation time carried by a v7 id, or the zero time.
func (id RunID) Time() time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC()
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", NewInvalidArgumentError("run id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", NewInvalidArgumentError(fmt.Sprintf("run id %q is not a uuid: %v", s, err))
	}
	return RunID(s), nil
}
