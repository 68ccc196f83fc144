package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureDeviceIndex(t *testing.T) {
	idx, err := captureDeviceIndex("capture-0")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = captureDeviceIndex("capture-12")
	require.NoError(t, err)
	assert.Equal(t, 12, idx)

	for _, id := range []string{"", "capture-", "capture-abc", "playback-1", "1"} {
		_, err := captureDeviceIndex(id)
		assert.Error(t, err, "id %q", id)
	}
}
