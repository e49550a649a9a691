// Package protocol holds the wire types shared by the daemon and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

type Kind string

const (
	KindState Kind = "state" // idle, active, listening
	KindHeard Kind = "heard"
	KindSay   Kind = "say"
	KindReply Kind = "reply"
	KindError Kind = "error"
)

// Event is one line of the daemon's live status stream.
type Event struct {
	ID    string    `json:"id"`
	Kind  Kind      `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Route string    `json:"route,omitempty"`
	Time  time.Time `json:"time"`
}

func (e Event) String() string {
	ts := e.Time.Local().Format("15:04:05")
	if e.Route != "" {
		return fmt.Sprintf("%s %-5s [%s] %s", ts, e.Kind, e.Route, e.Text)
	}
	return fmt.Sprintf("%s %-5s %s", ts, e.Kind, e.Text)
}

func ParseEvent(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	if e.Kind == "" {
		return Event{}, fmt.Errorf("parse event: missing kind")
	}
	return e, nil
}
