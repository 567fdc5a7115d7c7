package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGenerateDashlessUUID(t *testing.T) {
	id := GenerateDashlessUUID()
	assert.Regexp(t, regexp.MustCompile(`^[a-f0-9]{32}$`), id)
	assert.NotEqual(t, id, GenerateDashlessUUID())
}

func createTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func TestGinError(t *testing.T) {
	c, w := createTestContext()

	GinError(c, http.StatusTeapot, "Generic error")

	assert.Equal(t, http.StatusTeapot, w.Code)
	var response APIError
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Generic error", response.Error)
	assert.True(t, c.IsAborted(), "Context should be aborted")
}

func TestGinErrorHelpers(t *testing.T) {
	testCases := []struct {
		name       string
		helperFunc func(*gin.Context, string)
		wantCode   int
	}{
		{"BadRequest", GinBadRequest, http.StatusBadRequest},
		{"Unauthorized", GinUnauthorized, http.StatusUnauthorized},
		{"Forbidden", GinForbidden, http.StatusForbidden},
		{"NotFound", GinNotFound, http.StatusNotFound},
		{"InternalServerError", GinInternalServerError, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := createTestContext()
			tc.helperFunc(c, tc.name+" test")

			assert.Equal(t, tc.wantCode, w.Code)
			var response APIError
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tc.name+" test", response.Error)
			assert.True(t, c.IsAborted())
		})
	}
}
