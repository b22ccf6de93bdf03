package schema

// Signal is an externally raised event delivered to a paused execution,
// typically the submit of a view state.
type Signal struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}
