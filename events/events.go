// Package events implements the OTMP wire codec: the JSON envelope
// shared by every socket frame, typed payloads for each event tag, and
// the Signed/Unsigned typestate that ensures only a signed event can be
// serialized onto the wire.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/oxidetalis-go/otmpd/crypto"
)

// Tag identifies the kind of event carried by an envelope.
type Tag string

const (
	TagPing                 Tag = "Ping"
	TagPong                 Tag = "Pong"
	TagChatRequest           Tag = "ChatRequest"
	TagChatRequestResponse   Tag = "ChatRequestResponse"
	TagError                 Tag = "Error"
)

// wireEnvelope is the on-the-wire JSON shape for every socket frame, in
// both directions.
type wireEnvelope struct {
	Event     Tag             `json:"event"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// PingData and PongData carry the sender's timestamp, used purely as a
// liveness round trip marker (not the signature's own timestamp).
type PingData struct {
	Timestamp uint64 `json:"timestamp"`
}

type PongData struct {
	Timestamp uint64 `json:"timestamp"`
}

// ChatRequestInData is the client-to-server payload: the target peer's
// base58 public key.
type ChatRequestInData struct {
	To string `json:"to"`
}

// ChatRequestOutData is the server-to-client payload: the requester's
// base58 public key.
type ChatRequestOutData struct {
	From string `json:"from"`
}

// ChatRequestResponseData is shared by both directions; exactly one of
// To/From is populated depending on direction.
type ChatRequestResponseData struct {
	To       string `json:"to,omitempty"`
	From     string `json:"from,omitempty"`
	Accepted bool   `json:"accepted"`
}

// ErrorData is the signed error event's payload: a stable wire name and
// a human-readable reason.
type ErrorData struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Inbound is a parsed client-to-server frame: the raw data bytes are
// kept alongside the typed payload so the canonical signing bytes (the
// compact encoding of exactly the `data` value) can be recomputed for
// verification.
type Inbound struct {
	Event     Tag
	DataBytes []byte
	Signature *crypto.Signature
}

// ParseInbound decodes a text frame. It distinguishes "not JSON at all"
// from "valid JSON but the wrong shape" so callers can classify the
// failure as InvalidJsonData vs UnknownClientEvent.
func ParseInbound(frame []byte) (*Inbound, error) {
	var env wireEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, ErrInvalidJSON
	}
	if env.Event == "" || len(env.Data) == 0 || env.Signature == "" {
		return nil, ErrUnknownEvent
	}

	canonical, err := CanonicalBytes(env.Data)
	if err != nil {
		return nil, ErrUnknownEvent
	}

	sig, err := crypto.ParseSignatureHex(env.Signature)
	if err != nil {
		return nil, ErrUnknownEvent
	}

	return &Inbound{Event: env.Event, DataBytes: canonical, Signature: sig}, nil
}

// DecodePing/DecodeChatRequest/DecodeChatRequestResponse
// unmarshal an Inbound's data bytes into the typed payload for that tag.
func (in *Inbound) DecodePing() (*PingData, error) {
	var d PingData
	if err := json.Unmarshal(in.DataBytes, &d); err != nil {
		return nil, ErrUnknownEvent
	}
	return &d, nil
}

func (in *Inbound) DecodeChatRequest() (*ChatRequestInData, error) {
	var d ChatRequestInData
	if err := json.Unmarshal(in.DataBytes, &d); err != nil || d.To == "" {
		return nil, ErrUnknownEvent
	}
	return &d, nil
}

func (in *Inbound) DecodeChatRequestResponse() (*ChatRequestResponseData, error) {
	var d ChatRequestResponseData
	if err := json.Unmarshal(in.DataBytes, &d); err != nil || d.To == "" {
		return nil, ErrUnknownEvent
	}
	return &d, nil
}

// CanonicalBytes returns the compact JSON encoding of a data value,
// the canonical signing input for socket events.
func CanonicalBytes(raw json.RawMessage) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := json.Compact(buf, raw); err != nil {
		return nil, fmt.Errorf("events: data is not valid JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// Unsigned is a server event awaiting a signature. It cannot be
// serialized to the wire; Sign is the only transition to a Signed event.
type Unsigned struct {
	event Tag
	data  any
}

func newUnsigned(tag Tag, data any) *Unsigned {
	return &Unsigned{event: tag, data: data}
}

func NewPing(timestamp uint64) *Unsigned {
	return newUnsigned(TagPing, PingData{Timestamp: timestamp})
}

func NewPong(timestamp uint64) *Unsigned {
	return newUnsigned(TagPong, PongData{Timestamp: timestamp})
}

func NewChatRequest(from string) *Unsigned {
	return newUnsigned(TagChatRequest, ChatRequestOutData{From: from})
}

func NewChatRequestResponse(from string, accepted bool) *Unsigned {
	return newUnsigned(TagChatRequestResponse, ChatRequestResponseData{From: from, Accepted: accepted})
}

func NewError(name ErrorName, reason string) *Unsigned {
	return newUnsigned(TagError, ErrorData{Name: string(name), Reason: reason})
}

// Sign is the one-way typestate transition from Unsigned to Signed: it
// computes the canonical data bytes and signs them under sharedSecret.
func (u *Unsigned) Sign(sharedSecret []byte) (*Signed, error) {
	dataBytes, err := json.Marshal(u.data)
	if err != nil {
		return nil, fmt.Errorf("events: failed to encode data: %w", err)
	}
	canonical, err := CanonicalBytes(dataBytes)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(canonical, sharedSecret)
	if err != nil {
		return nil, err
	}
	return &Signed{event: u.event, dataBytes: canonical, signature: sig}, nil
}

// Signed is a server event that has passed through Sign and may now be
// serialized onto the wire. Only this type implements json.Marshaler.
type Signed struct {
	event     Tag
	dataBytes []byte
	signature *crypto.Signature
}

func (s *Signed) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{
		Event:     s.event,
		Data:      json.RawMessage(s.dataBytes),
		Signature: s.signature.Hex(),
	})
}
