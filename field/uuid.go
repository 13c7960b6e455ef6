package field

import "github.com/google/uuid"

// UUID declares a char(36) field whose value defaults to a freshly
// generated UUIDv4 string on create. Suitable as a non-autoincrement
// primary key for models that need globally unique, driver-independent
// identifiers.
func UUID() Field {
	return Field{
		Type:      KindChar,
		Length:    36,
		Generator: func() any { return uuid.NewString() },
	}
}
