// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/pkg/errutil"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type errorKind struct {
	status int
	tag    string
	detail string
}

// errorKinds maps error codes to responses. VALIDATION_FAILED carries the
// error's own message instead of a fixed detail.
var errorKinds = map[string]errorKind{
	auth.CodeDuplicateEmail:          {http.StatusBadRequest, "DuplicateEmail", auth.MsgDuplicateEmail},
	auth.CodeInvalidCredentials:      {http.StatusUnauthorized, "InvalidCredentials", auth.MsgInvalidCredentials},
	auth.CodeInvalidToken:            {http.StatusUnauthorized, "InvalidToken", auth.MsgInvalidToken},
	auth.CodeOAuthVerificationFailed: {http.StatusUnauthorized, "OAuthVerificationFailed", auth.MsgOAuthFailed},
	auth.CodeOAuthNotImplemented:     {http.StatusNotImplemented, "NotImplemented", "Provider login not implemented"},
	auth.CodeUnknownProvider:         {http.StatusNotFound, "UnknownProvider", "Unknown provider"},
	auth.CodeInvalidOrExpiredToken:   {http.StatusBadRequest, "InvalidOrExpiredToken", auth.MsgInvalidOrExpiredToken},
	auth.CodeRateLimited:             {http.StatusTooManyRequests, "RateLimited", "Too many requests"},
	auth.CodeUpstreamUnavailable:     {http.StatusServiceUnavailable, "UpstreamUnavailable", "Service temporarily unavailable"},
	auth.CodeValidationFailed:        {http.StatusUnprocessableEntity, "ValidationFailed", ""},
}

var internalError = errorKind{http.StatusInternalServerError, "InternalError", "Internal server error"}

// classify picks the response for err.
func classify(err error) errorKind {
	kind, ok := errorKinds[errutil.Code(err)]
	if !ok {
		return internalError
	}
	if kind.detail == "" {
		kind.detail = err.Error()
	}
	return kind
}

// writeError renders err. Unclassified errors are logged with full context
// and masked as 500; upstream outages are logged as warnings.
func writeError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := classify(err)
	switch kind.status {
	case http.StatusInternalServerError:
		errutil.LogErrorContext(ctx, logger, "request failed", err)
	case http.StatusServiceUnavailable:
		logger.WarnContext(ctx, "upstream unavailable", errutil.Attrs(err)...)
	}
	switch kind.tag {
	case "InvalidCredentials", "InvalidToken":
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, kind.status, ErrorBody{Error: kind.tag, Detail: kind.detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away; nothing left to do
	json.NewEncoder(w).Encode(body)
}
