package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qrmenu/internal/cache"
	"qrmenu/internal/model"
)

const (
	// IdempotencyHeader carries the client's key for a submission.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayHeader marks a response served from a stored record.
	ReplayHeader = "Idempotent-Replay"

	inFlightMarker = "in-flight"
)

// IdempotencyStore is the subset of the Redis client used for idempotency records.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// IdempotencyObserver counts how keyed requests were handled.
type IdempotencyObserver interface {
	IdempotencyOutcome(outcome string)
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response of a request repeated with the same
// Idempotency-Key. Requests without a key, or with a nil store, pass through.
// Only successful responses are stored; a failed attempt frees the key for a retry.
func Idempotency(store IdempotencyStore, ttl time.Duration, observer IdempotencyObserver, logger zerolog.Logger) func(http.Handler) http.Handler {
	outcome := func(o string) {
		if observer != nil {
			observer.IdempotencyOutcome(o)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(r.Method+"|"+r.URL.Path, idempotencyKey)
			ctx := r.Context()

			claimed, err := store.SetNX(ctx, key, inFlightMarker, ttl)
			if err != nil {
				// A Redis outage degrades to plain handling.
				logger.Warn().Err(err).Msg("idempotency store unavailable")
				next.ServeHTTP(w, r)
				return
			}

			if !claimed {
				stored, err := store.Get(ctx, key)
				switch {
				case errors.Is(err, cache.ErrMiss):
					// Expired or released between the two calls.
					writeError(w, http.StatusConflict, model.ErrCodeIdempotencyConflict, "request with this idempotency key is being processed")
					outcome("conflict")
					return
				case err != nil:
					logger.Warn().Err(err).Msg("idempotency record lookup failed")
					next.ServeHTTP(w, r)
					return
				case stored == inFlightMarker:
					writeError(w, http.StatusConflict, model.ErrCodeIdempotencyConflict, "request with this idempotency key is being processed")
					outcome("conflict")
					return
				}

				record, err := decodeRecord(stored)
				if err != nil {
					logger.Error().Err(err).Str("key", key).Msg("corrupt idempotency record")
					writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to read idempotency record")
					return
				}
				if record.RequestHash != requestHash {
					writeError(w, http.StatusUnprocessableEntity, model.ErrCodeIdempotencyConflict, "idempotency key reused with different request body")
					outcome("mismatch")
					return
				}
				writeStoredResponse(w, record)
				outcome("replayed")
				return
			}

			// The claim must not outlive this request unless a response is
			// stored, even when the client goes away or the handler panics.
			settleCtx := context.WithoutCancel(ctx)
			release := func() {
				if err := store.Del(settleCtx, key); err != nil {
					logger.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
				}
			}
			defer func() {
				if p := recover(); p != nil {
					release()
					panic(p)
				}
			}()

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status >= 300 {
				release()
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

			payload, err := json.Marshal(record)
			if err != nil {
				logger.Error().Err(err).Msg("marshal idempotency record")
				release()
				return
			}
			if err := store.Set(settleCtx, key, string(payload), ttl); err != nil {
				logger.Error().Err(err).Str("key", key).Msg("persist idempotency record")
				release()
				return
			}
			outcome("stored")
		})
	}
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(ReplayHeader, "true")
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
