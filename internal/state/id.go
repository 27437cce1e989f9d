package state

import (
	"regexp"

	"github.com/google/uuid"
)

// psIDRE mirrors internal/patch's extraction regex. Duplicated rather than
// imported to avoid a state<->patch import cycle (patch's projection.go
// depends on state's types); both packages stay in lock-step because the
// trailer format is specified once in SPEC_FULL.md and exercised by both
// packages' tests.
var psIDRE = regexp.MustCompile(`ps-id:\s(?P<id>[0-9a-fA-F-]+)`)

func extractID(message string) *uuid.UUID {
	m := psIDRE.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return nil
	}
	return &id
}
