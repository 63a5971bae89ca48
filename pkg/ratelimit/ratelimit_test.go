package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerSecond(t *testing.T) {
	assert.Equal(t, Limit{Rate: 20, Period: time.Second, Burst: 40}, PerSecond(20, 40))
	assert.Equal(t, Limit{Rate: 20, Period: time.Second, Burst: 20}, PerSecond(20, 5))
}
