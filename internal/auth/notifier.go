// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
)

// LogNotifier stands in for a mail gateway. When logLinks is set it logs the
// reset link, which carries the raw token, so it must stay off in
// production.
type LogNotifier struct {
	logger   *slog.Logger
	logLinks bool
}

// NewLogNotifier returns a LogNotifier writing to logger.
func NewLogNotifier(logger *slog.Logger, logLinks bool) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, logLinks: logLinks}
}

// Deliver implements ResetNotifier.
func (n *LogNotifier) Deliver(ctx context.Context, notice ResetNotice) error {
	attrs := []any{"expires_at", notice.ExpiresAt}
	if n.logLinks {
		link := notice.Link
		if link == "" {
			link = notice.Token
		}
		attrs = append(attrs, "reset_link", link)
	}
	n.logger.InfoContext(ctx, "password reset issued", attrs...)
	return nil
}
