package controller

import "encoding/json"

// Inbound message kinds form a closed set; dispatch is a switch in
// serveMessages so adding a kind is a compile-visible change.
const (
	kindJoin  = "join"
	kindChat  = "chat"
	kindSync  = "sync"
	kindLeave = "leave"
)

const (
	codeProtocolError = "PROTOCOL_ERROR"
	codeNotFound      = "NOT_FOUND"
	codeAuthError     = "AUTH_ERROR"
	codePartyFull     = "PARTY_FULL"
)

type Input struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type JoinInput struct {
	PartyID   string `json:"party_id" validate:"required,max=64"`
	VideoID   string `json:"video_id" validate:"required,max=64"`
	UserID    string `json:"user_id" validate:"omitempty,max=64"`
	AuthToken string `json:"auth_token"`
}

type ChatInput struct {
	Text string `json:"text" validate:"required,max=500"`
}

type SyncInput struct {
	Action string   `json:"action" validate:"required,oneof=play pause seek"`
	Value  *float64 `json:"value"`
}

// wsError is sent only to the offending connection, never broadcast.
type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (wsError) EventType() string { return "error" }
