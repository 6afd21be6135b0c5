// Package template binds template names to image transformation behaviors.
// The registry is populated once at startup and read-only afterward, so
// concurrent resolves need no synchronization.
package template

import (
	"errors"
	"fmt"

	"imgcache/internal/events"
	"imgcache/internal/imageops"
)

// ErrTemplateNotFound is returned by Resolve for unregistered names.
var ErrTemplateNotFound = errors.New("template not found")

// Modifier is the single capability a resolved template exposes: transform
// the image in place.
type Modifier interface {
	Apply(img imageops.Image) error
}

// Params are the runtime parameters a parametric template is constructed
// from. Fixed-scale templates ignore them.
type Params struct {
	MaxSize   int
	MaxWidth  int
	MaxHeight int
	Coords    string
	Ratio     string
}

// Factory builds a fresh Modifier per request from the runtime parameters.
// The sink already carries the request context fields.
type Factory func(p Params, sink events.Sink) Modifier

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a template name to a modifier factory. Registering the same
// name twice panics: the template table is startup configuration and a
// duplicate is a programming error.
func (r *Registry) Register(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("template %q registered twice", name))
	}
	r.factories[name] = f
}

// Resolve returns the factory for a template name.
func (r *Registry) Resolve(name string) (Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return f, nil
}

// Names returns the registered template names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Has reports whether a template name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}
