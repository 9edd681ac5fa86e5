package service

import (
	"context"
	"log/slog"
)

// Mailer delivers password reset links. Delivery itself is a collaborator
// concern; the core only hands over the recipient and the opaque token.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset notifications to the log instead of sending
// email. Default in development; deployments plug in a real sender.
type LogMailer struct {
	Log *slog.Logger
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.Log.Info("password reset requested", slog.String("email", email))
	// The token only appears at debug level so production logs never
	// carry usable reset credentials.
	m.Log.Debug("password reset token issued", slog.String("email", email), slog.String("token", token))
	return nil
}
