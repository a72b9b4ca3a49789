package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clutch/ledger/internal/infrastructure/logger"
	"github.com/clutch/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIdentity(t *testing.T) {
	tenant := uuid.New()
	user := uuid.New()

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantTenant uuid.UUID
		wantUser   *uuid.UUID
	}{
		{name: "defaults", wantStatus: http.StatusOK, wantTenant: DefaultTenantID},
		{
			name:       "explicit tenant and user",
			headers:    map[string]string{TenantHeaderKey: tenant.String(), UserHeaderKey: user.String()},
			wantStatus: http.StatusOK,
			wantTenant: tenant,
			wantUser:   &user,
		},
		{name: "malformed tenant", headers: map[string]string{TenantHeaderKey: "acme"}, wantStatus: http.StatusBadRequest},
		{name: "malformed user", headers: map[string]string{UserHeaderKey: "42"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTenant uuid.UUID
			var gotUser *uuid.UUID
			var ctxTenant string

			router := gin.New()
			router.Use(Identity(DefaultTenantID))
			router.GET("/", func(c *gin.Context) {
				gotTenant = GetTenantID(c)
				gotUser = GetUserID(c)
				ctxTenant = logger.GetTenantID(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				var resp dto.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
				return
			}
			assert.Equal(t, tt.wantTenant, gotTenant)
			assert.Equal(t, tt.wantTenant.String(), ctxTenant)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}

func TestGetTenantID_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, GetTenantID(c))
	assert.Nil(t, GetUserID(c))
}
