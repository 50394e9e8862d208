package models

import "time"

// Audit actions recorded in secret_logs. Every lifecycle transition writes
// exactly one of these.
const (
	ActionSecretCreated             = "secret_created"
	ActionAccessSuccessful          = "access_successful"
	ActionAccessAttemptFailed       = "access_attempt_failed"
	ActionAccessAttemptAlreadyUsed  = "access_attempt_already_used"
	ActionAutoDeleteExpiredOnAccess = "auto_delete_expired_on_access"
	ActionDeleteSuccessful          = "delete_successful"
	ActionAutoCleanupExpired        = "auto_cleanup_expired"
)

// SystemIPAddress marks audit entries written by the background reaper
// rather than a real client.
const SystemIPAddress = "system"

// SecretLog is one immutable audit entry. SecretID is nil when the entry
// could not be attached to a known secret row.
type SecretLog struct {
	ID        int64
	SecretID  *int64
	SecretKey string
	Action    string
	IPAddress string
	CreatedAt time.Time
}
