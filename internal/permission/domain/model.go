package domain

import "time"

type ScopeType string

const (
	ScopeUser   ScopeType = "user"
	ScopeSchool ScopeType = "school"
)

// PermissionRecord is one explicit allow/deny for a scope and document type.
// Absence of a record means the next tier decides.
type PermissionRecord struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	ScopeType      string     `json:"scope_type" gorm:"type:text;not null;uniqueIndex:ux_permissions_scope,priority:1"`
	ScopeID        int64      `json:"scope_id" gorm:"not null;uniqueIndex:ux_permissions_scope,priority:2"`
	DocumentTypeID int64      `json:"document_type_id" gorm:"not null;uniqueIndex:ux_permissions_scope,priority:3"`
	IsAllowed      bool       `json:"is_allowed" gorm:"not null;default:true"`
	CreditsPerUse  *int64     `json:"credits_per_use,omitempty"`
	GrantedAt      time.Time  `json:"granted_at" gorm:"not null"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PermissionRecord) TableName() string { return "document_permissions" }
