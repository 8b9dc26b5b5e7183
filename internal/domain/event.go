package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// TrackMessage is the JSON form of a complete storm track on the wire.
// Points is optional; when empty the service evaluates its configured points.
type TrackMessage struct {
	StormID      string        `json:"storm_id"`
	Name         string        `json:"name,omitempty"`
	Observations []Observation `json:"observations"`
	Points       []QueryPoint  `json:"points,omitempty"`
}

// NewTrackMessage builds the wire form of a track.
func NewTrackMessage(t StormTrack, points []QueryPoint) TrackMessage {
	return TrackMessage{
		StormID:      t.StormID,
		Name:         t.Name,
		Observations: t.Observations(),
		Points:       points,
	}
}

// ParseTrackMessage decodes and validates a track message.
func ParseTrackMessage(data []byte) (StormTrack, []QueryPoint, error) {
	var msg TrackMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return StormTrack{}, nil, fmt.Errorf("parse track message: %w", err)
	}
	if msg.StormID == "" {
		return StormTrack{}, nil, fmt.Errorf("parse track message: storm_id is required")
	}
	track, err := NewStormTrack(msg.StormID, msg.Name, msg.Observations)
	if err != nil {
		return StormTrack{}, nil, fmt.Errorf("parse track message: %w", err)
	}
	return track, msg.Points, nil
}
