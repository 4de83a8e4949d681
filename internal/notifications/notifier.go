package notifications

import "context"

// Notifier is the outbound channel for password reset links. The auth
// service only sees success or failure; a failure means the caller must
// roll back the stored token.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}
