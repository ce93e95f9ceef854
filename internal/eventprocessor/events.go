// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

/*
Package eventprocessor moves ingestion traffic through a Watermill bus.

Producers publish history batches, candidate batches, playback progress,
opened and disliked content as Event envelopes. A Watermill router
consumes them with retry, deduplication and poison queue middleware and
applies each one to the database and the planner.

Two backends are supported:
  - gochannel: in-process, no persistence (default)
  - nats: NATS JetStream, optionally backed by an embedded nats-server
*/
package eventprocessor

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Ingestion topics.
const (
	TopicHistory    = "todaywatch.history"
	TopicCandidates = "todaywatch.candidates"
	TopicProgress   = "todaywatch.progress"
	TopicOpened     = "todaywatch.opened"
	TopicDislike    = "todaywatch.dislike"

	// topicWildcard matches every ingestion topic in a JetStream stream.
	topicWildcard = "todaywatch.>"
)

// Topics lists every topic the router consumes.
func Topics() []string {
	return []string{TopicHistory, TopicCandidates, TopicProgress, TopicOpened, TopicDislike}
}

// Message metadata keys.
const (
	metadataEventType     = "event_type"
	metadataCorrelationID = "correlation_id"
)

// Event is the envelope carried by every bus message. ID doubles as the
// Watermill message UUID and the deduplication key.
type Event struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in an envelope for the given topic.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event type is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		Type:      eventType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has an empty payload", e.ID)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Message encodes the envelope as a Watermill message.
func (e *Event) Message() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.ID, err)
	}
	msg := message.NewMessage(e.ID, data)
	msg.Metadata.Set(metadataEventType, e.Type)
	return msg, nil
}

// EventFromMessage decodes the envelope carried by msg.
func EventFromMessage(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope %s: %w", msg.UUID, err)
	}
	if event.ID == "" {
		event.ID = msg.UUID
	}
	return &event, nil
}
