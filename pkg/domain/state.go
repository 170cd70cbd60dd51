package domain

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// AppliedState records exactly what a successful apply changed. The engine
// treats Payload as an opaque token; only the owning adapter knows its
// shape. Payload must survive a JSON round trip through the journal, so
// adapters keep it to strings, numbers and bools.
type AppliedState struct {
	Technique TechniqueID    `json:"technique"`
	AppliedAt time.Time      `json:"applied_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// DecodePayload unmarshals the opaque payload into an adapter-typed struct.
// Adapters call this at the top of Revert to recover their own state from a
// journal entry.
func (s *AppliedState) DecodePayload(out any) error {
	return mapstructure.Decode(s.Payload, out)
}

// EncodePayload replaces the payload with the map form of an adapter-typed
// struct.
func (s *AppliedState) EncodePayload(in any) error {
	var m map[string]any
	if err := mapstructure.Decode(in, &m); err != nil {
		return err
	}
	s.Payload = m
	return nil
}
