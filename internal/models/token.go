package models

// TokenPair is the body the backend returns from its token endpoints.
// Refresh is empty on refresh responses unless the backend rotates tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type SessionUser struct {
	UserID   any    `json:"user_id,omitempty"`
	FullName string `json:"full_name"`
}

// SessionInfo answers "who is logged in". Exp and Now are Unix milliseconds.
type SessionInfo struct {
	Authenticated bool        `json:"authenticated"`
	User          SessionUser `json:"user"`
	Exp           int64       `json:"exp"`
	Now           int64       `json:"now"`
	TTLMs         int64       `json:"ttlMs"`
}
