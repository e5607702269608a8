package tools

import "context"

// Tool describes one backend capability exposed to the remote agent.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Registry resolves tool names to backend capabilities. Handle returns
// plain text: the remote agent only ever receives a string, never a
// structured object.
type Registry interface {
	Tools() []Tool
	Handle(ctx context.Context, name string, args map[string]any) (string, error)
}
