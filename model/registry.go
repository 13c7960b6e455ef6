package model

import (
	"context"
	"sort"
	"sync"

	"github.com/cosmotype/cosmotype/field"
)

// Mixin is a reusable bundle of fields and relations merged into a model
// at Extend time. It changes nothing about the IR; it is
// sugar over repeating the same Extend call across models.
type Mixin struct {
	Fields    map[string]any
	Relations map[string]Relation
}

// Config carries the non-field arguments to Registry.Extend.
type Config struct {
	PrimaryKey    []string
	Autoincrement bool
	Unique        [][]string
	ForeignKeys   []ForeignKey
	Relations     map[string]Relation
	Mixins        []Mixin
	Finalize      func(ctx context.Context) error
}

// Registry is a scoped owner of models. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Extend declares or extends a named model with the given fields (each
// either a field.Field value or a shorthand string) and configuration.
// Extending an already-declared model merges fields.
func (r *Registry) Extend(name string, fields map[string]any, cfg Config) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.models[name]
	if !exists {
		m = &Model{Name: name, Fields: make(map[string]field.Field), Relations: make(map[string]Relation)}
		r.models[name] = m
	}

	for _, mx := range cfg.Mixins {
		if err := applyFields(m, mx.Fields); err != nil {
			return nil, err
		}
		for rn, rel := range mx.Relations {
			m.Relations[rn] = rel
		}
	}
	if err := applyFields(m, fields); err != nil {
		return nil, err
	}

	if len(cfg.PrimaryKey) > 0 {
		m.PrimaryKey = cfg.PrimaryKey
	}
	if cfg.Autoincrement {
		m.Autoincrement = true
	}
	if len(m.PrimaryKey) > 1 {
		// Composite primary key disables autoincrement.
		m.Autoincrement = false
	}
	m.Unique = append(m.Unique, cfg.Unique...)
	m.ForeignKeys = append(m.ForeignKeys, cfg.ForeignKeys...)
	for rn, rel := range cfg.Relations {
		m.Relations[rn] = rel
	}
	if cfg.Finalize != nil {
		m.Finalize = cfg.Finalize
	}

	if err := validateModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

// AddMigration registers a migration callback on an already-extended
// model.
func (r *Registry) AddMigration(modelName string, mg Migration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[modelName]
	if !ok {
		return NewRelationUnresolvedError(modelName, "", "model not declared")
	}
	m.migrations = append(m.migrations, mg)
	return nil
}

// Model returns the named model, or false if it has not been declared.
func (r *Registry) Model(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Names returns every declared model name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func applyFields(m *Model, fields map[string]any) error {
	for name, spec := range fields {
		var f field.Field
		switch v := spec.(type) {
		case field.Field:
			f = v
		case string:
			parsed, err := field.ParseShorthand(v)
			if err != nil {
				return err
			}
			f = parsed
		default:
			return field.NewInvalidFieldError("unsupported field spec for " + name)
		}
		if existing, ok := m.Fields[name]; ok {
			f.LegacyNames = dedupStrings(append(append([]string{}, existing.LegacyNames...), f.LegacyNames...))
		} else {
			m.Order = append(m.Order, name)
		}
		m.Fields[name] = f
	}
	return nil
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// validateModel enforces the structural invariants:
// all unique/primary key references must refer to known fields, and a
// field of type `primary` requires the owning model to enable
// autoincrement.
func validateModel(m *Model) error {
	for _, k := range m.PrimaryKey {
		if _, ok := m.Fields[k]; !ok {
			return NewIndexMissingError(m.Name, k)
		}
	}
	for _, idx := range m.Unique {
		for _, k := range idx {
			if _, ok := m.Fields[k]; !ok {
				return NewIndexMissingError(m.Name, k)
			}
		}
	}
	for name, f := range m.Fields {
		if f.Type == field.KindPrimary && !m.Autoincrement {
			return NewPrimaryAutoIncMismatchError(m.Name, name)
		}
	}
	return nil
}
