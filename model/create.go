package model

import (
	"time"

	"github.com/cosmotype/cosmotype/field"
)

// Create seeds a record with each declared field's effective initial
// value (deep-cloned; omitted for primary-key fields, deprecated fields,
// and fields whose default is nil), then overlays the caller's data
// through Parse.
func (m *Model) Create(data map[string]any) map[string]any {
	seed := make(map[string]any, len(m.Fields))
	for name, f := range m.Fields {
		if f.Deprecated || m.IsPrimaryKey(name) {
			continue
		}
		if init := f.EffectiveInitial(); init != nil {
			seed[name] = init
		}
	}
	for k, v := range Parse(data) {
		seed[k] = v
	}
	return seed
}

// ResolveValue normalizes time-of-day values by resetting the date
// component to the epoch.
func (m *Model) ResolveValue(key string, value any) any {
	f, ok := m.Fields[key]
	if !ok || f.Type != field.KindTime {
		return value
	}
	t, ok := value.(time.Time)
	if !ok {
		return value
	}
	return time.Date(1970, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
