package middleware

import (
	"github.com/clutch/ledger/internal/infrastructure/logger"
	"github.com/clutch/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys and headers carrying the caller identity
const (
	TenantIDKey     = "tenant_id"
	UserIDKey       = "user_id"
	TenantHeaderKey = "X-Tenant-ID"
	UserHeaderKey   = "X-User-ID"
)

// DefaultTenantID is used when a request names no tenant
var DefaultTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Identity reads the tenant from X-Tenant-ID (falling back to
// defaultTenant) and the acting user from X-User-ID. Malformed ids are
// rejected with 400. Authentication happens upstream of this service.
func Identity(defaultTenant uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := defaultTenant
		if raw := c.GetHeader(TenantHeaderKey); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				abortBadHeader(c, TenantHeaderKey)
				return
			}
			tenantID = parsed
		}
		c.Set(TenantIDKey, tenantID)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, log = logger.WithTenantID(ctx, log, tenantID.String())

		if raw := c.GetHeader(UserHeaderKey); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				abortBadHeader(c, UserHeaderKey)
				return
			}
			c.Set(UserIDKey, userID)
			ctx, _ = logger.WithUserID(ctx, log, userID.String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortBadHeader(c *gin.Context, header string) {
	resp := dto.NewErrorResponseWithDetails(dto.ErrCodeBadRequest, "Malformed identity header",
		GetRequestID(c), map[string]any{"header": header})
	c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeBadRequest), resp)
}

// GetTenantID returns the tenant resolved by Identity, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetUserID returns the acting user, or nil for system calls
func GetUserID(c *gin.Context) *uuid.UUID {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}
