package interfaces

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"staffable/domain"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, key string) (civil.Date, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, invalid("%s must be a date like 2024-09-02", key)
	}
	return d, nil
}

func queryRange(c *gin.Context) (civil.Date, civil.Date, error) {
	from, err := queryDate(c, "from")
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	return from, to, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalid("%s must be a whole number", key)
	}
	return n, nil
}

// queryList accepts both repeated keys and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
