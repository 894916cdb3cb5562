package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/id"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLength bounds client supplied ids before they reach logs and
// outbound calls.
const maxRequestIDLength = 64

// requestID accepts a client supplied request id or generates one, echoes it in
// the response and stores it in the context. Outbound ThruText calls reuse it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = id.Request()
		}
		w.Header().Set(RequestIDHeader, reqID)

		ctx := id.WithRequest(r.Context(), reqID)
		ctx = context.WithValue(ctx, middleware.RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observe records request metrics by route pattern and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)

		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// unthrottled paths are polled by orchestrators and scrapers.
var unthrottled = map[string]bool{"/health": true, "/metrics": true}

// throttle rejects clients that exceed their per-address request rate.
// It runs after RealIP, so RemoteAddr is the forwarded client address when
// the server sits behind a proxy.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unthrottled[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}
		if s.limiter.Allow(client) {
			next.ServeHTTP(w, r)
			return
		}

		s.logger.Debug("rate limited", "client", client, "request_id", middleware.GetReqID(r.Context()))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.MarshalWrite(w, &APIError{
			Code:    string(domainerrors.CodeRateLimited),
			Message: "too many requests",
		})
	})
}
