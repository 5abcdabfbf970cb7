package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Listing bounds for the limit query parameter.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ParseLimit reads the limit query parameter, defaulting to DefaultListLimit.
func ParseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return DefaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > MaxListLimit {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", MaxListLimit)
	}
	return limit, nil
}
