// Copyright (c) 2026 Studika. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail provides the outbound email boundary.

Actual delivery is owned by an external collaborator (the platform's
notification service). This package ships a logging implementation used in
development and as a safe default; it records that a message WOULD have been
sent without ever printing the secret-bearing URL at info level.
*/
package mail

import (
	"context"
	"log/slog"
)

// LogSender is a development implementation of the auth layer's mailer
// contract. It logs deliveries instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendPasswordReset records a password-reset delivery.
//
// The reset URL embeds a capability token, so it is only emitted at debug
// level; production handlers forward it to the delivery collaborator instead.
func (sender *LogSender) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	sender.logger.InfoContext(ctx, "password_reset_email_queued",
		slog.String("email", email),
	)
	sender.logger.DebugContext(ctx, "password_reset_email_url",
		slog.String("reset_url", resetURL),
	)
	return nil
}
