// Package testutil holds shared fixtures for the ledger service tests: an
// in-memory ledger stack, deterministic identifiers and gin test contexts.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestContext wraps a gin context and its recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

// NewTestContext creates a gin test context for a GET on "/".
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return &TestContext{Context: c, Recorder: w, Engine: engine}
}

// SetTenantID stores the tenant the way the identity middleware does.
func (tc *TestContext) SetTenantID(id uuid.UUID) {
	tc.Context.Set("tenant_id", id)
}

// SetUserID stores the acting user the way the identity middleware does.
func (tc *TestContext) SetUserID(id uuid.UUID) {
	tc.Context.Set("user_id", id)
}

// ResponseBody returns the recorded body.
func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

// NewTestUUID derives a stable UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("ledger-test/"+seed))
}

// TestTenantID is the tenant every fixture uses.
func TestTenantID() uuid.UUID {
	return NewTestUUID("tenant")
}

// TestUserID is the acting user in service tests.
func TestUserID() uuid.UUID {
	return NewTestUUID("user")
}

// Day returns midnight UTC on the given day of March 2026. Postings in a
// test should use increasing days since backdating is rejected.
func Day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

// RequireEventually polls condition until it holds or timeout passes.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	require.Fail(t, "condition not met within timeout", msgAndArgs...)
}
