// Package http provides the HTTP transport adapter for "aegis serve":
// POST /v1/evaluate and GET /metrics, modeled on the teacher's
// internal/adapter/inbound/http package (request DTO -> domain call ->
// response DTO, plus a request-ID middleware).
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aegis-policy/aegis/internal/ctxkey"
	"github.com/aegis-policy/aegis/internal/domain/value"
	"github.com/aegis-policy/aegis/internal/service"
)

// requestIDContextKey is the type for the request ID context key.
type requestIDContextKey struct{}

// requestIDKey is the context key for the request ID.
var requestIDKey = requestIDContextKey{}

// loggerKey is the context key for the enriched per-request logger, using
// the shared key type from ctxkey so other packages can read it without
// importing this one.
var loggerKey = ctxkey.LoggerKey{}

// requestIDMiddleware extracts or generates a request ID, enriches the
// logger with it, and stores both in the request context.
func requestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			ctx = context.WithValue(ctx, loggerKey, logger.With("request_id", requestID))

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggerFromContext retrieves the enriched logger from context, falling
// back to slog.Default() outside a request.
func loggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// EvaluateRequest is the JSON body of POST /v1/evaluate.
type EvaluateRequest struct {
	Rule      string         `json:"rule"`
	Variables map[string]any `json:"variables"`
}

// EvaluateResponse is the JSON response of POST /v1/evaluate.
type EvaluateResponse struct {
	Verdict bool           `json:"verdict"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Handler serves the evaluation HTTP surface over one Runtime.
type Handler struct {
	runtime   *service.Runtime
	tokenHash string // argon2id hash of the bearer token, empty disables auth
	logger    *slog.Logger
}

// NewHandler constructs a Handler. tokenHash is the argon2id hash of the
// bearer token required on every /v1/evaluate request (GET /metrics is not
// authenticated) (SPEC_FULL.md §3); an empty
// string disables authentication, matching a local/dev deployment. A nil
// logger falls back to slog.Default().
func NewHandler(runtime *service.Runtime, tokenHash string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{runtime: runtime, tokenHash: tokenHash, logger: logger}
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	evaluate := requestIDMiddleware(h.logger)(h.authenticate(http.HandlerFunc(h.handleEvaluate)))
	mux.Handle("POST /v1/evaluate", evaluate)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// authenticate checks the Authorization: Bearer <token> header against
// the configured argon2id hash, the same ComparePasswordAndHash call the
// teacher uses to verify admin API keys (identity_service.go).
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.tokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		match, err := argon2id.ComparePasswordAndHash(token, h.tokenHash)
		if err != nil || !match {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return ""
	}
	return auth[len(prefix):]
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	variables := make(map[string]value.Value, len(req.Variables))
	for k, v := range req.Variables {
		variables[k] = fromAny(v)
	}

	authz, err := h.runtime.Evaluate(r.Context(), req.Rule, variables)
	if err != nil {
		loggerFromContext(r.Context()).Warn("evaluate failed", "rule", req.Rule, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := EvaluateResponse{Verdict: authz.Verdict}
	if len(authz.Attrs) > 0 {
		resp.Attrs = make(map[string]any, len(authz.Attrs))
		for k, v := range authz.Attrs {
			resp.Attrs[k] = toAny(v)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// fromAny widens a decoded JSON value into a policy Value. JSON numbers
// decode as float64; non-integral values stay Float, integral ones become
// Int so "age: 10" in a request body matches an Int literal in rule text.
func fromAny(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nothing
	case bool:
		return value.Bool(t)
	case string:
		return value.Str(t)
	case float64:
		if t == float64(int64(t)) {
			return value.Int(int64(t))
		}
		return value.Float(t)
	default:
		return value.Nothing
	}
}

func toAny(v value.Value) any {
	switch v.Kind() {
	case value.KindBool:
		return v.AsBool()
	case value.KindInt:
		return v.AsInt()
	case value.KindFloat:
		return v.AsFloat()
	case value.KindStr:
		return v.AsStr()
	default:
		return v.String()
	}
}
