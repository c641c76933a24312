package application

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestToday_UsesUTCDate(t *testing.T) {
	t.Parallel()

	sydney := time.FixedZone("AEST", 10*60*60)
	late := func() time.Time { return time.Date(2024, time.September, 5, 5, 0, 0, 0, sydney) }

	assert.Equal(t, civil.Date{Year: 2024, Month: time.September, Day: 4}, today(late))
	assert.Equal(t, civil.Date{Year: 2024, Month: time.September, Day: 4}, today(clock))
}
