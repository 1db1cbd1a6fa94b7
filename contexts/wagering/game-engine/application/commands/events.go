package commands

import (
	"encoding/json"
	"time"

	"zerosum/contexts/wagering/game-engine/ports"
)

const (
	EventGameCreated  = "game.created"
	EventVoteCast     = "vote.cast"
	EventGameResolved = "game.resolved"
)

func newWageringEnvelope(
	eventID string,
	eventType string,
	gameID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by game for stable ordering on
	// game-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "game-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "game_id",
		PartitionKey:     gameID,
		Data:             payload,
	}, nil
}
