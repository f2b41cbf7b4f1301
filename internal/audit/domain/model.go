package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system"
)

type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	SchoolID   *snowflake.ID     `json:"school_id,omitempty" gorm:"index:ix_audit_logs_school_created,priority:1"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null;index"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index:ix_audit_logs_school_created,priority:2"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	SchoolID   snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
