package model

import "github.com/cosmotype/cosmotype/field"

// TimeMixin adds createdAt and updatedAt timestamp fields.
func TimeMixin() Mixin {
	return Mixin{
		Fields: map[string]any{
			"createdAt": field.Field{Type: field.KindTimestamp},
			"updatedAt": field.Field{Type: field.KindTimestamp},
		},
	}
}

// SoftDeleteMixin adds a nullable deletedAt field.
func SoftDeleteMixin() Mixin {
	return Mixin{
		Fields: map[string]any{
			"deletedAt": field.Field{Type: field.KindTimestamp, Nullable: true},
		},
	}
}

// TenantMixin adds a tenantId field for multi-tenant models.
func TenantMixin() Mixin {
	return Mixin{
		Fields: map[string]any{
			"tenantId": field.Field{Type: field.KindString},
		},
	}
}
