package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fn func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorResponse(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		ErrorResponse(c, http.StatusConflict, "BORROW_002", "no copy free")
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "BORROW_002", body.Error.Code)
	assert.Equal(t, "no copy free", body.Error.Message)
	assert.Nil(t, body.Data)
}

func TestCommonErrors(t *testing.T) {
	cases := []struct {
		name   string
		fn     func(c *gin.Context, message string)
		status int
		code   string
	}{
		{"bad request", BadRequest, http.StatusBadRequest, "BAD_REQUEST"},
		{"unauthorized", Unauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden, http.StatusForbidden, "FORBIDDEN"},
		{"not found", NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"internal", InternalServerError, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := record(func(c *gin.Context) { tc.fn(c, "nope") })
			assert.Equal(t, tc.status, w.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, "nope", body.Error.Message)
		})
	}
}

func TestSuccessWithMeta(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		SuccessWithMeta(c, http.StatusOK, "ok", []string{"a"}, &Meta{Page: 1, Limit: 10, Total: 1})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 1, body.Meta.Total)
}
