package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]any
		want Kind
	}{
		{name: "result is an event", raw: map[string]any{"type": "result", "subtype": "success"}, want: KindEvent},
		{name: "assistant is an event", raw: map[string]any{"type": "assistant"}, want: KindEvent},
		{name: "control request", raw: map[string]any{"type": "control_request"}, want: KindControlRequest},
		{name: "control response", raw: map[string]any{"type": "control_response"}, want: KindControlResponse},
		{name: "cancel request", raw: map[string]any{"type": "control_cancel_request"}, want: KindCancelRequest},
		{name: "missing type", raw: map[string]any{"subtype": "success"}, want: KindInvalid},
		{name: "non-string type", raw: map[string]any{"type": 7}, want: KindInvalid},
		{name: "empty type", raw: map[string]any{"type": ""}, want: KindInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, Classify(tc.raw))
		})
	}
}

func TestNewControlRequest_SubtypeWins(t *testing.T) {
	payload := map[string]any{"subtype": "bogus", "mode": "plan"}
	req := NewControlRequest("req_1", SubtypeSetPermissionMode, payload)

	require.Equal(t, SubtypeSetPermissionMode, req.Subtype())
	require.Equal(t, "plan", req.String("mode"))
	require.Equal(t, "bogus", payload["subtype"], "caller payload must not be mutated")
}

func TestControlRequest_RoundTrip(t *testing.T) {
	req := NewControlRequest("req_7_abc", SubtypeCanUseTool, map[string]any{
		"tool_name": "Bash",
		"input":     map[string]any{"command": "ls"},
	})

	line, err := Encode(req)
	require.NoError(t, err)

	raw, err := Decode(line)
	require.NoError(t, err)
	require.Equal(t, KindControlRequest, Classify(raw))

	decoded, err := DecodeControlRequest(raw)
	require.NoError(t, err)
	require.Equal(t, req.RequestID, decoded.RequestID)
	require.Equal(t, SubtypeCanUseTool, decoded.Subtype())
	require.Equal(t, "Bash", decoded.String("tool_name"))
	require.Equal(t, map[string]any{"command": "ls"}, decoded.Map("input"))
}

func TestControlResponse_RoundTrip(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		resp := Success("req_3", map[string]any{"behavior": "allow"})

		line, err := Encode(resp)
		require.NoError(t, err)

		raw, err := Decode(line)
		require.NoError(t, err)
		require.Equal(t, KindControlResponse, Classify(raw))

		decoded, err := DecodeControlResponse(raw)
		require.NoError(t, err)
		require.Equal(t, resp, decoded)
		require.False(t, decoded.IsError())
	})

	t.Run("error", func(t *testing.T) {
		resp := Failure("req_4", "denied")

		line, err := Encode(resp)
		require.NoError(t, err)
		require.JSONEq(t,
			`{"type":"control_response","response":{"subtype":"error","request_id":"req_4","error":"denied"}}`,
			string(line))

		raw, err := Decode(line)
		require.NoError(t, err)

		decoded, err := DecodeControlResponse(raw)
		require.NoError(t, err)
		require.True(t, decoded.IsError())
		require.Equal(t, "denied", decoded.ErrorMessage())
	})

	t.Run("empty success keeps response object", func(t *testing.T) {
		line, err := Encode(Success("req_5", nil))
		require.NoError(t, err)
		require.JSONEq(t,
			`{"type":"control_response","response":{"subtype":"success","request_id":"req_5","response":{}}}`,
			string(line))
	})
}

func TestDecodeControlRequest_Invalid(t *testing.T) {
	_, err := DecodeControlRequest(map[string]any{"type": "control_request", "request": map[string]any{}})
	require.ErrorContains(t, err, "request_id")

	_, err = DecodeControlRequest(map[string]any{"type": "control_request", "request_id": "r1"})
	require.ErrorContains(t, err, "'request'")
}

func TestDecodeControlResponse_Invalid(t *testing.T) {
	_, err := DecodeControlResponse(map[string]any{"type": "control_response"})
	require.ErrorContains(t, err, "'response'")

	_, err = DecodeControlResponse(map[string]any{
		"type":     "control_response",
		"response": map[string]any{"subtype": "success"},
	})
	require.ErrorContains(t, err, "request_id")
}

func TestDecode_RejectsNonObjects(t *testing.T) {
	_, err := Decode([]byte(`[1,2,3]`))
	require.Error(t, err)

	_, err = Decode([]byte(`null`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"type":`))
	require.Error(t, err)
}
