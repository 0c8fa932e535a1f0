package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/outbox"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// NewDefaultDecoders registers a v1 decoder for every known event.
func NewDefaultDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for eventType, e := range catalog {
		newPayload := e.newPayload
		reg.Register(eventType, 1, func(payload json.RawMessage) (any, error) {
			target := newPayload()
			if err := json.Unmarshal(payload, target); err != nil {
				return nil, err
			}
			return target, nil
		})
	}
	return reg
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}

// DecodeEnvelope parses a published message body and decodes its data.
func (r *DecoderRegistry) DecodeEnvelope(body []byte) (outbox.PayloadEnvelope, any, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return envelope, nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	eventType, err := enums.ParseOutboxEventType(envelope.EventType)
	if err != nil {
		return envelope, nil, NewNonRetryableError(err)
	}
	payload, err := r.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		return envelope, nil, NewNonRetryableError(err)
	}
	return envelope, payload, nil
}
