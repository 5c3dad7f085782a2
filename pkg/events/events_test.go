package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayAmount(t *testing.T) {
	assert.Equal(t, "1.5", DisplayAmount(1_500_000_000))
	assert.Equal(t, "0.000000001", DisplayAmount(1))
	assert.Equal(t, "0", DisplayAmount(0))
	assert.Equal(t, "18446744073.709551615", DisplayAmount(^uint64(0)))
}
