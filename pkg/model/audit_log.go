package model

import "time"

type AuditLog struct {
	ID           string         `json:"id,omitempty" bson:"_id,omitempty"`
	ActorID      string         `json:"actor_id" bson:"actor_id"`
	ActorRole    Role           `json:"actor_role" bson:"actor_role"`
	Action       string         `json:"action" bson:"action"`
	ResourceType string         `json:"resource_type" bson:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	IP           string         `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	RequestID    string         `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Details      map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
}

type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	Since        *time.Time
}
