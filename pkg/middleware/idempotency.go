package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader     = "X-Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	ContextKeyIdempotencyKey = "idempotency_key"

	DefaultIdempotencyTTL = 5 * time.Minute
	DefaultProcessingTTL  = 60 * time.Second
	IdempotencyKeyPrefix  = "parking:idempotency:"

	maxIdempotentBody = 1 << 20
)

type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord is what gets stored under a caller's key
type IdempotencyRecord struct {
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// IdempotencyStore persists records. Claim returns the existing record when
// the key is already taken, or nil when the caller now owns it.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, rec *IdempotencyRecord, ttl time.Duration) (*IdempotencyRecord, error)
	Complete(ctx context.Context, key string, rec *IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RedisClient is the subset of go-redis the store needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisIdempotencyStore struct {
	rdb RedisClient
}

// NewRedisIdempotencyStore keeps records as JSON strings with a TTL
func NewRedisIdempotencyStore(rdb RedisClient) IdempotencyStore {
	return &redisIdempotencyStore{rdb: rdb}
}

func (s *redisIdempotencyStore) Claim(ctx context.Context, key string, rec *IdempotencyRecord, ttl time.Duration) (*IdempotencyRecord, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	ok, err := s.rdb.SetNX(ctx, key, string(data), ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		return s.Claim(ctx, key, rec, ttl)
	}
	if err != nil {
		return nil, err
	}
	var existing IdempotencyRecord
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %s: %w", key, err)
	}
	return &existing, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key string, rec *IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, string(data), ttl).Err()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

type IdempotencyConfig struct {
	Store IdempotencyStore
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long a crashed request blocks its key
	ProcessingTTL time.Duration
	// Required rejects requests without a key
	Required bool
}

func DefaultIdempotencyConfig(store IdempotencyStore) *IdempotencyConfig {
	return &IdempotencyConfig{
		Store:         store,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: DefaultProcessingTTL,
	}
}

// Idempotency replays the first response when a caller repeats a request with
// the same X-Idempotency-Key. Keys are scoped per user. Store errors let the
// request through. 5xx responses release the key so the client may retry.
func Idempotency(config *IdempotencyConfig) gin.HandlerFunc {
	cfg := *config
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultIdempotencyTTL
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = DefaultProcessingTTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if cfg.Required {
				response.Abort(c, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "X-Idempotency-Key header is required")
				return
			}
			c.Next()
			return
		}
		c.Set(ContextKeyIdempotencyKey, key)

		body, err := bufferBody(c)
		if err != nil {
			response.Abort(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
			return
		}

		userID, _ := GetUserID(c)
		storeKey := IdempotencyKeyPrefix + userID + ":" + key
		rec := &IdempotencyRecord{
			Status:      StatusProcessing,
			RequestHash: fingerprint(c, userID, body),
			CreatedAt:   time.Now().UTC(),
		}
		ctx := c.Request.Context()

		existing, err := cfg.Store.Claim(ctx, storeKey, rec, cfg.ProcessingTTL)
		if err != nil {
			logger.FromContext(ctx).Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if existing != nil {
			replay(c, existing, rec.RequestHash)
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = rw
		c.Next()

		bg := context.WithoutCancel(ctx)
		if rw.Status() >= http.StatusInternalServerError {
			_ = cfg.Store.Release(bg, storeKey)
			return
		}
		rec.Status = StatusCompleted
		rec.ResponseCode = rw.Status()
		rec.ResponseBody = rw.buf.String()
		if err := cfg.Store.Complete(bg, storeKey, rec, cfg.TTL); err != nil {
			logger.FromContext(ctx).Warn("failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, rec *IdempotencyRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		response.Abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with different request")
	case rec.Status == StatusProcessing:
		response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed")
	default:
		c.Header(IdempotentReplayedHeader, "true")
		c.Data(rec.ResponseCode, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
	}
}

// GetIdempotencyKey returns the key the current request carried
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetString(ContextKeyIdempotencyKey)
	return key, key != ""
}

func bufferBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotentBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxIdempotentBody {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxIdempotentBody)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// fingerprint binds a key to one request: method, concrete path, caller and body
func fingerprint(c *gin.Context, userID string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{c.Request.Method, c.Request.URL.Path, userID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
