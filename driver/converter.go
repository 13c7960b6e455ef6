package driver

import (
	"fmt"
	"sync"

	"github.com/cosmotype/cosmotype/field"
)

// Converter translates a declared field.Kind between its Go-level value
// and a backend's native wire/storage representation. Ancestor, when set,
// is tried when Dump/Load are nil, letting a narrower kind (e.g.
// KindUnsigned) fall back to a wider one's conversion (KindInteger)
// without repeating it.
type Converter struct {
	Dump     func(value any) (any, error)
	Load     func(raw any) (any, error)
	Ancestor *Converter
}

func (c Converter) dump(value any) (any, error) {
	if c.Dump != nil {
		return c.Dump(value)
	}
	if c.Ancestor != nil {
		return c.Ancestor.dump(value)
	}
	return value, nil
}

func (c Converter) load(raw any) (any, error) {
	if c.Load != nil {
		return c.Load(raw)
	}
	if c.Ancestor != nil {
		return c.Ancestor.load(raw)
	}
	return raw, nil
}

// ConverterRegistry maps a field.Kind to its Converter.
type ConverterRegistry struct {
	mu         sync.RWMutex
	converters map[field.Kind]Converter
}

// NewConverterRegistry builds an empty registry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{converters: map[field.Kind]Converter{}}
}

// Register installs conv for kind.
func (r *ConverterRegistry) Register(kind field.Kind, conv Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[kind] = conv
}

// Dump converts value to its backend representation for kind.
func (r *ConverterRegistry) Dump(kind field.Kind, value any) (any, error) {
	r.mu.RLock()
	conv, ok := r.converters[kind]
	r.mu.RUnlock()
	if !ok {
		return value, nil
	}
	v, err := conv.dump(value)
	if err != nil {
		return nil, fmt.Errorf("driver: dump %s: %w", kind, err)
	}
	return v, nil
}

// Load converts raw from its backend representation back to kind's Go
// value.
func (r *ConverterRegistry) Load(kind field.Kind, raw any) (any, error) {
	r.mu.RLock()
	conv, ok := r.converters[kind]
	r.mu.RUnlock()
	if !ok {
		return raw, nil
	}
	v, err := conv.load(raw)
	if err != nil {
		return nil, fmt.Errorf("driver: load %s: %w", kind, err)
	}
	return v, nil
}
