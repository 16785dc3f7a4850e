// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/observability"
	"github.com/holomush/authsvc/internal/ratelimit"
)

const tracerName = "authsvc/httpapi"

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requestInfo is shared by the outer middleware and the matched route.
type requestInfo struct {
	route string
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		return info
	}
	return nil
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b) //nolint:wrapcheck // pass-through writer
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// observe starts a span per request, then logs and counts it once the
// handler returns.
func (s *Server) observe(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{route: "unmatched"}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		elapsed := time.Since(start)
		span.SetName(info.route)
		span.SetAttributes(
			attribute.String("http.route", info.route),
			attribute.Int("http.response.status_code", rec.status),
		)
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		if s.metrics != nil {
			s.metrics.HTTPRequest(r.Method, info.route, rec.status, elapsed)
		}
		s.logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"client", s.clientAddr(r))
	})
}

// recoverPanics turns a handler panic into a logged 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(v)
				}
				err := oops.Code("HANDLER_PANIC").
					With("path", r.URL.Path).
					Errorf("panic: %v", v)
				writeError(r.Context(), w, s.logger, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// deadline bounds every request's context.
func (s *Server) deadline(next http.Handler) http.Handler {
	if s.cfg.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitBody caps the request body.
func (s *Server) limitBody(next http.Handler) http.Handler {
	if s.cfg.MaxBodyBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// rateLimit counts every request against its client and path. Counter
// outages fail closed with 503 unless the limiter is configured to fail
// open.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		decision, err := s.limiter.Allow(ctx, s.clientAddr(r), r.URL.Path)
		if err != nil {
			if s.limiter.FailOpen() {
				s.recordDecision(observability.DecisionFailOpen)
				s.logger.WarnContext(ctx, "rate limiter unavailable, admitting request",
					"path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			s.recordDecision(observability.DecisionError)
			writeError(ctx, w, s.logger, err)
			return
		}

		setRateHeaders(w.Header(), decision)
		if !decision.Allowed {
			s.recordDecision(observability.DecisionDenied)
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Round(time.Second)/time.Second)))
			writeError(ctx, w, s.logger, oops.Code(auth.CodeRateLimited).
				With("count", decision.Count).
				With("limit", decision.Limit).
				Errorf("Too many requests"))
			return
		}
		s.recordDecision(observability.DecisionAllowed)
		next.ServeHTTP(w, r)
	})
}

func setRateHeaders(h http.Header, d ratelimit.Decision) {
	h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining(), 10))
}

func (s *Server) recordDecision(decision string) {
	if s.metrics != nil {
		s.metrics.RateLimitDecision(decision)
	}
}

// clientAddr is the peer host, or the last X-Forwarded-For entry when proxy
// headers are trusted. The last entry is the one the trusted proxy appended;
// everything left of it is client supplied.
func (s *Server) clientAddr(r *http.Request) string {
	if s.cfg.TrustProxyHeaders {
		if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
			fwd := values[len(values)-1]
			if i := strings.LastIndexByte(fwd, ','); i >= 0 {
				fwd = fwd[i+1:]
			}
			if last := strings.TrimSpace(fwd); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
