// Package docs defines the documentation-lookup boundary the chat engine
// depends on. Implementations fetch reference material for a diagram topic;
// the engine never cares where it comes from.
package docs

import "context"

// Document is one fetched reference document. The JSON tags match the
// payload returned to the service inside a function-call output.
type Document struct {
	Content string `json:"document"`
	Source  string `json:"sourceLocator"`
}

// Provider resolves a topic keyword into a reference document.
type Provider interface {
	Lookup(ctx context.Context, topic string) (Document, error)
}

// ProviderFunc adapts a plain function into a Provider.
type ProviderFunc func(ctx context.Context, topic string) (Document, error)

// Lookup implements Provider.
func (f ProviderFunc) Lookup(ctx context.Context, topic string) (Document, error) {
	return f(ctx, topic)
}
