package snowflake32

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake(t *testing.T) {
	_, err := NewSnowflake(MaxDatacenter, MaxWorker)
	assert.NoError(t, err)

	_, err = NewSnowflake(4, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = NewSnowflake(0, 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = NewSnowflake(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNextVal(t *testing.T) {
	snow, err := NewSnowflake(1, 1)
	require.NoError(t, err)
	fixed := time.Date(2022, 7, 20, 10, 0, 0, 0, time.Local)
	snow.now = func() time.Time { return fixed }

	first := snow.NextVal()
	assert.Equal(t, int32(36000), first>>timestampShift)
	assert.Equal(t, int32(1), (first>>datacenterShift)&MaxDatacenter)
	assert.Equal(t, int32(1), (first>>workerShift)&MaxWorker)
	assert.Equal(t, int32(0), first&sequenceMask)

	second := snow.NextVal()
	assert.Equal(t, first+1, second)
	t.Logf("snowflake: %s", snow)
}

func TestNextValWaitsNextSecond(t *testing.T) {
	snow, err := NewSnowflake(0, 0)
	require.NoError(t, err)
	fixed := time.Date(2022, 7, 20, 10, 0, 0, 0, time.Local)
	calls := 0
	snow.now = func() time.Time {
		calls++
		// 序列号用尽后时钟前进一秒
		if calls > 513 {
			return fixed.Add(time.Second)
		}
		return fixed
	}

	seen := make(map[int32]bool)
	for i := 0; i < 513; i++ {
		v := snow.NextVal()
		assert.False(t, seen[v], "duplicated %d", v)
		seen[v] = true
	}
	assert.Equal(t, int32(36001), snow.seconds)
}

func TestMessageId(t *testing.T) {
	snow, err := NewSnowflake(2, 3)
	require.NoError(t, err)
	fixed := time.Date(2022, 7, 20, 10, 0, 0, 0, time.Local)
	snow.now = func() time.Time { return fixed }

	id := snow.MessageId()
	assert.Len(t, id, 12)
	assert.Equal(t, "0720", id[:4])
	assert.NotEqual(t, id, snow.MessageId())
}
