// Package wire defines the line-delimited JSON envelopes exchanged with the
// peer and classifies decoded values into event messages, control requests
// and control responses.
package wire

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Envelope type discriminators.
const (
	TypeControlRequest       = "control_request"
	TypeControlResponse      = "control_response"
	TypeControlCancelRequest = "control_cancel_request"
)

// Control request subtypes.
const (
	SubtypeInterrupt         = "interrupt"
	SubtypeCanUseTool        = "can_use_tool"
	SubtypeInitialize        = "initialize"
	SubtypeSetPermissionMode = "set_permission_mode"
	SubtypeSetModel          = "set_model"
	SubtypeHookCallback      = "hook_callback"
	SubtypeMCPMessage        = "mcp_message"
	SubtypeMCPStatus         = "mcp_status"
	SubtypeRewindFiles       = "rewind_files"
)

// Control response subtypes.
const (
	ResponseSuccess              = "success"
	ResponseError                = "error"
	ResponseCancelAcknowledgment = "cancel_acknowledgment"
)

// Kind is the category of one decoded inbound value.
type Kind int

const (
	// KindInvalid marks a value without a usable "type" discriminator.
	KindInvalid Kind = iota
	// KindEvent is a plain event message for the consumer.
	KindEvent
	// KindControlRequest is a question from the peer that the host must answer.
	KindControlRequest
	// KindControlResponse is a reply to a host-issued control request.
	KindControlResponse
	// KindCancelRequest asks the host to cancel an in-flight control request.
	KindCancelRequest
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindControlRequest:
		return "control_request"
	case KindControlResponse:
		return "control_response"
	case KindCancelRequest:
		return "control_cancel_request"
	default:
		return "invalid"
	}
}

// Classify inspects the "type" discriminator of a decoded value.
// Anything that is not control traffic is an event message.
func Classify(raw map[string]any) Kind {
	msgType, ok := raw["type"].(string)
	if !ok || msgType == "" {
		return KindInvalid
	}

	switch msgType {
	case TypeControlRequest:
		return KindControlRequest
	case TypeControlResponse:
		return KindControlResponse
	case TypeControlCancelRequest:
		return KindCancelRequest
	default:
		return KindEvent
	}
}

// ControlRequest is a control message sent to or received from the peer.
//
// Wire format:
//
//	{"type":"control_request","request_id":"req_1_01J...","request":{"subtype":"interrupt"}}
//
//nolint:tagliatelle // peer uses snake_case
type ControlRequest struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Request   map[string]any `json:"request"`
}

// NewControlRequest builds a request envelope. The payload is copied, and
// its own "subtype" key, if any, is overridden by subtype.
func NewControlRequest(requestID, subtype string, payload map[string]any) *ControlRequest {
	request := make(map[string]any, len(payload)+1)
	maps.Copy(request, payload)
	request["subtype"] = subtype

	return &ControlRequest{
		Type:      TypeControlRequest,
		RequestID: requestID,
		Request:   request,
	}
}

// Subtype returns the request-kind discriminator.
func (r *ControlRequest) Subtype() string {
	s, _ := r.Request["subtype"].(string)

	return s
}

// String returns a string field of the request payload, or "".
func (r *ControlRequest) String(key string) string {
	s, _ := r.Request[key].(string)

	return s
}

// Map returns an object field of the request payload, or nil.
func (r *ControlRequest) Map(key string) map[string]any {
	m, _ := r.Request[key].(map[string]any)

	return m
}

// DecodeControlRequest validates a classified control request.
func DecodeControlRequest(raw map[string]any) (*ControlRequest, error) {
	requestID, ok := raw["request_id"].(string)
	if !ok || requestID == "" {
		return nil, fmt.Errorf("control request missing request_id")
	}

	request, ok := raw["request"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("control request %s missing 'request' field", requestID)
	}

	return &ControlRequest{
		Type:      TypeControlRequest,
		RequestID: requestID,
		Request:   request,
	}, nil
}

// ResponseBody is the nested "response" object of a control response.
//
//nolint:tagliatelle // peer uses snake_case
type ResponseBody struct {
	Subtype   string         `json:"subtype"`
	RequestID string         `json:"request_id"`
	Response  map[string]any `json:"response,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// MarshalJSON always writes "response" on success replies, as {} when the
// payload is empty, and "error" on error replies.
func (b ResponseBody) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"subtype":    b.Subtype,
		"request_id": b.RequestID,
	}

	if b.Subtype == ResponseError {
		out["error"] = b.Error
	} else {
		payload := b.Response
		if payload == nil {
			payload = map[string]any{}
		}

		out["response"] = payload
	}

	return json.Marshal(out)
}

// ControlResponse is the correlated reply to a control request.
//
// Wire format:
//
//	{"type":"control_response","response":{"subtype":"success","request_id":"...","response":{...}}}
//	{"type":"control_response","response":{"subtype":"error","request_id":"...","error":"..."}}
type ControlResponse struct {
	Type     string       `json:"type"`
	Response ResponseBody `json:"response"`
}

// Success builds a success reply.
func Success(requestID string, payload map[string]any) *ControlResponse {
	return &ControlResponse{
		Type: TypeControlResponse,
		Response: ResponseBody{
			Subtype:   ResponseSuccess,
			RequestID: requestID,
			Response:  payload,
		},
	}
}

// Failure builds an error reply.
func Failure(requestID, message string) *ControlResponse {
	return &ControlResponse{
		Type: TypeControlResponse,
		Response: ResponseBody{
			Subtype:   ResponseError,
			RequestID: requestID,
			Error:     message,
		},
	}
}

// RequestID returns the id of the request this reply answers.
func (r *ControlResponse) RequestID() string { return r.Response.RequestID }

// IsError reports whether the peer answered with an error.
func (r *ControlResponse) IsError() bool { return r.Response.Subtype == ResponseError }

// Payload returns the success payload.
func (r *ControlResponse) Payload() map[string]any { return r.Response.Response }

// ErrorMessage returns the error string of an error reply.
func (r *ControlResponse) ErrorMessage() string {
	if r.Response.Error == "" && r.IsError() {
		return "unknown error"
	}

	return r.Response.Error
}

// DecodeControlResponse validates a classified control response.
func DecodeControlResponse(raw map[string]any) (*ControlResponse, error) {
	body, ok := raw["response"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("control response missing 'response' field")
	}

	requestID, ok := body["request_id"].(string)
	if !ok || requestID == "" {
		return nil, fmt.Errorf("control response missing request_id")
	}

	subtype, _ := body["subtype"].(string)
	payload, _ := body["response"].(map[string]any)
	errMsg, _ := body["error"].(string)

	return &ControlResponse{
		Type: TypeControlResponse,
		Response: ResponseBody{
			Subtype:   subtype,
			RequestID: requestID,
			Response:  payload,
			Error:     errMsg,
		},
	}, nil
}

// CancelAcknowledgment answers a control_cancel_request.
func CancelAcknowledgment(requestID string, found, alreadyCompleted bool) map[string]any {
	return map[string]any{
		"type": TypeControlResponse,
		"response": map[string]any{
			"subtype":           ResponseCancelAcknowledgment,
			"request_id":        requestID,
			"found":             found,
			"already_completed": alreadyCompleted,
		},
	}
}

// Encode marshals an envelope to one line, without the trailing newline.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	return data, nil
}

// Decode unmarshals one line into a generic JSON object.
func Decode(line []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}

	if raw == nil {
		return nil, fmt.Errorf("line is not a JSON object")
	}

	return raw, nil
}
