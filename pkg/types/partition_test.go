package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionTemplate_DayGranularity(t *testing.T) {
	tmpl, err := NewPartitionTemplate("%Y-%m-%d")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 17, 23, 59, 59, 0, time.UTC).UnixNano()
	assert.Equal(t, "2024-03-17", tmpl.PartitionKey(ts))

	// One second later rolls into the next day.
	assert.Equal(t, "2024-03-18", tmpl.PartitionKey(ts+int64(time.Second)))
}

func TestPartitionTemplate_SameTimestampSameKey(t *testing.T) {
	tmpl, err := NewPartitionTemplate(DefaultPartitionTemplate)
	require.NoError(t, err)

	ts := time.Date(2024, 7, 1, 12, 0, 0, 42, time.UTC).UnixNano()
	assert.Equal(t, tmpl.PartitionKey(ts), tmpl.PartitionKey(ts))
}

func TestPartitionTemplate_HourGranularity(t *testing.T) {
	tmpl, err := NewPartitionTemplate("%Y-%m-%dT%H")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 17, 7, 30, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, "2024-03-17T07", tmpl.PartitionKey(ts))
}

func TestPartitionTemplate_TruncatesInUTC(t *testing.T) {
	tmpl, err := NewPartitionTemplate("%Y-%m-%d")
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:00 EST on the 17th is already the 18th in UTC.
	ts := time.Date(2024, 3, 17, 23, 0, 0, 0, loc).UnixNano()
	assert.Equal(t, "2024-03-18", tmpl.PartitionKey(ts))
}

func TestPartitionTemplate_InvalidSpecifier(t *testing.T) {
	_, err := NewPartitionTemplate("%Y-%q")
	assert.Error(t, err)

	_, err = NewPartitionTemplate("%Y-%")
	assert.Error(t, err)

	_, err = NewPartitionTemplate("")
	assert.Error(t, err)
}
