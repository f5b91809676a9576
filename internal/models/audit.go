package models

import "time"

const (
	AuditLoginSucceeded   = "login.succeeded"
	AuditLoginFailed      = "login.failed"
	AuditRefreshSucceeded = "refresh.succeeded"
	AuditRefreshFailed    = "refresh.failed"
	AuditLogout           = "logout"
)

type AuditEvent struct {
	ID        string            `json:"id" dynamodbav:"id"`
	Action    string            `json:"action" dynamodbav:"action"`
	UserID    string            `json:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	Status    int               `json:"status" dynamodbav:"status"`
	ClientIP  string            `json:"client_ip,omitempty" dynamodbav:"client_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty" dynamodbav:"user_agent,omitempty"`
	Meta      map[string]string `json:"meta,omitempty" dynamodbav:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" dynamodbav:"expires_at"`
}

func (e *AuditEvent) GetPK() string {
	if e.UserID == "" {
		return "AUDIT#anonymous"
	}
	return "AUDIT#" + e.UserID
}

func (e *AuditEvent) GetSK() string {
	return "EVENT#" + e.CreatedAt.UTC().Format(time.RFC3339Nano) + "#" + e.ID
}
