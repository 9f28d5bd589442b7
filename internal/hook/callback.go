package hook

import "context"

// Context accompanies each hook invocation.
type Context struct {
	// CallbackID is the id the callback was registered under.
	CallbackID string
}

// Callback is a host-supplied hook. It may block; ctx is cancelled if the
// peer cancels the request or the session stops. toolUseID is nil for
// events not tied to a tool call.
type Callback func(
	ctx context.Context,
	input Input,
	toolUseID *string,
	hookCtx *Context,
) (Output, error)

// Matcher groups callbacks for one event under a peer-evaluated filter.
type Matcher struct {
	// Matcher is a tool name or a pipe-separated list such as "Write|Edit".
	// Empty matches everything. The peer evaluates it; it is not a regex.
	Matcher string
	Hooks   []Callback
	// Timeout in seconds. Nil leaves the peer default.
	Timeout *float64
}
