// Package publisher implements the typed bus publisher (C6): per-match
// routing with at-least-once delivery, leaving the broker client itself
// as an external collaborator.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType distinguishes an incremental update from the terminal
// message sent once a match is finished or its replay is exhausted.
type MessageType string

const (
	// MessageUpdate carries the read-model rows the caller passes; the
	// ingestion loop and replay runner pass the match's full current
	// state.
	MessageUpdate MessageType = "update"
	// MessageStop signals no further messages will follow for the match.
	MessageStop MessageType = "stop"
)

// Message is the envelope published for one match-id's worth of
// changes. Consumers dedupe by the EventID of each row they have
// already applied, since delivery is at-least-once.
type Message struct {
	MatchID     string      `json:"matchId"`
	MessageType MessageType `json:"messageType"`
	Timestamp   time.Time   `json:"timestamp"`
	Rows        any         `json:"rows,omitempty"`
}

// BusClient is the narrow interface the publisher needs from a message
// bus. Its wire protocol and delivery mechanics are an external
// collaborator; this package only shapes messages and picks a channel.
type BusClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Publisher routes Messages to per-match channels on a BusClient.
type Publisher struct {
	bus            BusClient
	channelForName func(matchID string) string
}

// New creates a Publisher. channelPrefix is prepended to the match id to
// form each match's channel name (e.g. "matches." + matchID).
func New(bus BusClient, channelPrefix string) *Publisher {
	return &Publisher{
		bus: bus,
		channelForName: func(matchID string) string {
			return channelPrefix + matchID
		},
	}
}

// PublishUpdate sends an update message carrying rows for matchID.
func (p *Publisher) PublishUpdate(ctx context.Context, matchID string, rows any, now time.Time) error {
	return p.publish(ctx, Message{
		MatchID:     matchID,
		MessageType: MessageUpdate,
		Timestamp:   now,
		Rows:        rows,
	})
}

// PublishStop sends the terminal stop message for matchID.
func (p *Publisher) PublishStop(ctx context.Context, matchID string, now time.Time) error {
	return p.publish(ctx, Message{
		MatchID:     matchID,
		MessageType: MessageStop,
		Timestamp:   now,
	})
}

func (p *Publisher) publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publisher: encode message: %w", err)
	}
	if err := p.bus.Publish(ctx, p.channelForName(msg.MatchID), payload); err != nil {
		return fmt.Errorf("publisher: publish: %w", err)
	}
	return nil
}
