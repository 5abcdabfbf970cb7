package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		query     string
		expected  int
		shouldErr bool
	}{
		{name: "default", query: "", expected: DefaultListLimit},
		{name: "custom", query: "?limit=5", expected: 5},
		{name: "max", query: "?limit=1000", expected: MaxListLimit},
		{name: "zero", query: "?limit=0", shouldErr: true},
		{name: "too large", query: "?limit=1001", shouldErr: true},
		{name: "not a number", query: "?limit=abc", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/credentials"+tt.query, nil)

			limit, err := ParseLimit(c)
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, limit)
		})
	}
}
