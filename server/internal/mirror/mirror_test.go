package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_EmptyURL(t *testing.T) {
	_, err := Connect(Config{})
	require.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	// Nothing listens on port 1; the initial connect fails rather than retrying.
	_, err := Connect(Config{URL: "nats://127.0.0.1:1", ReconnectWait: 10 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror: connect to nats")
}
