package api

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
)

// Client message types.
const (
	TypeStart  = "start"
	TypeAnswer = "answer"
)

// Server message types.
const (
	TypeWelcome = "welcome"
	TypeEvents  = "events"
	TypeStatus  = "status"
	TypePrompt  = "prompt"
	TypeReject  = "reject"
	TypeSummary = "summary"
	TypeError   = "error"
)

const clientSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["start", "answer"]},
    "seed": {"type": "integer"},
    "text": {"type": "string", "maxLength": 64}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "answer"}}},
      "then": {"required": ["text"]}
    }
  ],
  "additionalProperties": false
}`

var inbound = jsonschema.MustCompileString("client.schema.json", clientSchema)

// ClientMsg is a message from the player.
type ClientMsg struct {
	Type string `json:"type"`
	Seed *int64 `json:"seed,omitempty"` // start: replay a seeded term
	Text string `json:"text,omitempty"` // answer: raw line as typed
}

// DecodeClient validates raw against the client schema and decodes it.
func DecodeClient(raw []byte) (ClientMsg, error) {
	var msg ClientMsg

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return msg, fmt.Errorf("malformed message: %w", err)
	}
	if err := inbound.Validate(doc); err != nil {
		return msg, fmt.Errorf("invalid message: %w", err)
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("malformed message: %w", err)
	}
	return msg, nil
}

// ServerMsg is a message to the player. Only the field named by Type is set.
type ServerMsg struct {
	Type    string         `json:"type"`
	Term    string         `json:"term,omitempty"`
	Events  []engine.Event `json:"events,omitempty"`
	Lines   []string       `json:"lines,omitempty"` // Events rendered as report text
	Status  *city.Snapshot `json:"status,omitempty"`
	Prompt  *engine.Prompt `json:"prompt,omitempty"`
	Reject  *RejectMsg     `json:"reject,omitempty"`
	Summary *city.Summary  `json:"summary,omitempty"`
	Verdict string         `json:"verdict,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// RejectMsg explains why an answer was not accepted.
type RejectMsg struct {
	*engine.Rejection
	Message string `json:"message"`
}
