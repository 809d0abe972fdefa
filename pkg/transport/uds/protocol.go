// Package uds carries newline-delimited JSON messages between sightline
// clients and the timelined daemon over a Unix domain socket.
package uds

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

var seq atomic.Uint64

// MsgType identifies the kind of message.
type MsgType string

const (
	MsgTypeReq MsgType = "req"
	MsgTypeRes MsgType = "res"
	MsgTypeEvt MsgType = "evt"
)

// Message is the NDJSON envelope for all communication.
type Message struct {
	Type   MsgType         `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func encodeData(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	return b, nil
}

// NewRequest creates a request message with a unique ID.
func NewRequest(method string, data any) (Message, error) {
	raw, err := encodeData(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: MsgTypeReq, ID: fmt.Sprintf("req-%d", seq.Add(1)), Method: method, Data: raw}, nil
}

// NewResponse answers the request reqID.
func NewResponse(reqID, method string, data any) (Message, error) {
	raw, err := encodeData(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Data: raw}, nil
}

// NewErrorResponse answers the request reqID with an error.
func NewErrorResponse(reqID, method, errMsg string) Message {
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Error: errMsg}
}

// NewEvent creates a server-pushed event.
func NewEvent(method string, data any) (Message, error) {
	raw, err := encodeData(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: MsgTypeEvt, ID: fmt.Sprintf("evt-%d", seq.Add(1)), Method: method, Data: raw}, nil
}

// UnmarshalData decodes the message payload into v. An empty payload leaves v untouched.
func (m Message) UnmarshalData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", m.Method, err)
	}
	return nil
}

// Methods
const (
	MethodPing           = "Ping"
	MethodGetOneTimeline = "GetOneTimeline"
	MethodListTimelines  = "ListTimelines"
	MethodSaveTimeline   = "SaveTimeline"
	MethodDeleteTimeline = "DeleteTimeline"

	EventTimelinesChanged = "timelines.changed"
)

// PingResponse is the response to a Ping request.
type PingResponse struct {
	Pong    bool   `json:"pong"`
	Version string `json:"version,omitempty"`
}

// GetOneTimelineRequest is the payload for a GetOneTimeline request.
type GetOneTimelineRequest struct {
	ID string `json:"id"`
}

// SaveTimelineRequest carries one raw timeline document. The document must
// have a savedObjectId.
type SaveTimelineRequest struct {
	Timeline json.RawMessage `json:"timeline"`
}

// SaveTimelineResponse reports the id that was written.
type SaveTimelineResponse struct {
	SavedObjectID string `json:"savedObjectId"`
}

// DeleteTimelineRequest is the payload for a DeleteTimeline request.
type DeleteTimelineRequest struct {
	ID string `json:"id"`
}

// TimelinesChangedEvent is pushed when the number of stored timelines moves.
type TimelinesChangedEvent struct {
	Count int `json:"count"`
}
