// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package bus

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer handles envelope encoding/decoding for NATS messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts an envelope to JSON bytes.
func (s *Serializer) Marshal(env *Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("validate envelope: %w", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	return data, nil
}

// Unmarshal converts JSON bytes to an envelope.
func (s *Serializer) Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	return &env, nil
}

// SerializeEnvelope is a convenience function that marshals an envelope to JSON.
func SerializeEnvelope(env *Envelope) ([]byte, error) {
	return NewSerializer().Marshal(env)
}

// DeserializeEnvelope is a convenience function that unmarshals JSON to an envelope.
func DeserializeEnvelope(data []byte) (*Envelope, error) {
	return NewSerializer().Unmarshal(data)
}
