package provider

import (
	"context"
	"fmt"
)

// Factory creates a configured LLMProvider by name. Concrete constructors
// live in the subpackages; they are registered here at startup to avoid an
// import cycle through this package.
type Factory func(ctx context.Context) (LLMProvider, error)

var factories = map[Name]Factory{}

// RegisterFactory registers a provider constructor. Called from package
// init or program startup; not safe for concurrent use afterwards.
func RegisterFactory(name Name, f Factory) {
	factories[name] = f
}

// New creates a new LLMProvider based on the provider name.
func New(ctx context.Context, name Name) (LLMProvider, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return f(ctx)
}
