package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/withmetravel/withme-backend/api/responses"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
	pkgredis "github.com/withmetravel/withme-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	decisionIdempotencyTTL = 7 * 24 * time.Hour
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	ttl     time.Duration
}

// "*" matches exactly one path segment.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchSegments("/api/trips"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/members"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/access-requests"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/itinerary"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/itinerary/sections"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/polls"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/friends/request"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/comments"), ttl: defaultIdempotencyTTL},
	// state transitions
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/access-requests/*/respond"), ttl: decisionIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/friends/respond"), ttl: decisionIdempotencyTTL},
	{method: http.MethodPost, matcher: matchSegments("/api/trips/*/members/accept"), ttl: decisionIdempotencyTTL},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a covered POST repeats its
// Idempotency-Key. Requests without the header run normally.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil || idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			if stored, getErr := store.Get(r.Context(), key); getErr != nil && !pkgredis.IsNil(getErr) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			} else if stored != "" {
				record, decodeErr := decodeRecord(stored)
				if decodeErr != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode idempotency record"))
					return
				}
				if record.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				w.Header().Set("Idempotent-Replayed", "true")
				writeStoredResponse(w, record)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				return
			}

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}

			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				logError(r.Context(), logg, "marshal idempotency record", marshalErr)
				return
			}

			if _, setErr := store.SetNX(r.Context(), key, string(payload), ttl); setErr != nil {
				logError(r.Context(), logg, "persist idempotency record", setErr)
			}
		})
	}
}

func buildScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()).String(),
		r.Method,
		r.URL.Path,
	}, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if rule.matcher(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchSegments(pattern string) routeMatcher {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	return func(path string) bool {
		got := strings.Split(strings.Trim(path, "/"), "/")
		if len(got) != len(want) {
			return false
		}
		for i := range want {
			if want[i] == "*" {
				if got[i] == "" {
					return false
				}
				continue
			}
			if want[i] != got[i] {
				return false
			}
		}
		return true
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
