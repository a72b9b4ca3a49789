package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/clutch/ledger/internal/infrastructure/cache"
	"github.com/clutch/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader names the client-chosen key of a retried request
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set on responses served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

// Idempotency replays the stored response of a POST whose Idempotency-Key
// was already used by the same tenant. Keys are reserved before the handler
// runs, so a concurrent duplicate gets 409 instead of executing twice.
// Server errors release the key and the client may retry with it.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			abortWithCode(c, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithCode(c, dto.ErrCodeBadRequest, "Unreadable request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		scoped := GetTenantID(c).String() + ":" + key
		fingerprint := requestFingerprint(c.Request.Method, c.Request.URL.Path, body)

		reserved, err := store.Reserve(ctx, scoped, fingerprint, ttl)
		if err != nil {
			logger.Error("Idempotency store unavailable", zap.String("key", key), zap.Error(err))
			abortWithCode(c, dto.ErrCodeInternal, "Idempotency store unavailable")
			return
		}
		if !reserved {
			replay(c, store, scoped, fingerprint, logger)
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, scoped); err != nil {
				logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}
		entry := cache.Entry{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := store.Complete(ctx, scoped, entry, ttl); err != nil {
			logger.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store cache.IdempotencyStore, key, fingerprint string, logger *zap.Logger) {
	entry, err := store.Lookup(c.Request.Context(), key)
	if err != nil {
		logger.Error("Idempotency store unavailable", zap.Error(err))
		abortWithCode(c, dto.ErrCodeInternal, "Idempotency store unavailable")
		return
	}
	switch {
	case entry == nil || !entry.Done:
		abortWithCode(c, dto.ErrCodeRequestInProgress, "A request with this Idempotency-Key is still in progress")
	case entry.Fingerprint != fingerprint:
		abortWithCode(c, dto.ErrCodeIdempotencyKeyReuse, "Idempotency-Key was used for a different request")
	default:
		c.Header(IdempotentReplayHeader, "true")
		contentType := entry.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Data(entry.Status, contentType, entry.Body)
		c.Abort()
	}
}

func abortWithCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithDetails(code, message, GetRequestID(c), nil))
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// recordingWriter copies the response body while passing it through
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
