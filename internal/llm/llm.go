// Package llm wraps the model provider behind a small client interface
// so the pipeline, the tool loop and the tests all speak to the same
// surface. The concrete Gemini client, a deterministic fake, and the
// retry middleware live here.
package llm

import (
	"context"
	"encoding/json"
)

// Shape selects the provider-side response schema for a call.
type Shape int

const (
	// ShapeNone requests free-form JSON (used by the tool loop).
	ShapeNone Shape = iota
	// ShapeDigest constrains the response to the Digest schema.
	ShapeDigest
	// ShapeSelfcheck constrains the response to the Selfcheck schema.
	ShapeSelfcheck
)

// Request is one structured-output call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	Shape       Shape
}

// Client is the provider surface. GenerateJSON returns the raw JSON text
// of the model's reply; errors are classified (see errors.go) before they
// leave the client.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
	Close() error
}

// Middleware decorates a Client.
type Middleware func(Client) Client

// Chain applies middlewares outermost-first.
func Chain(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
