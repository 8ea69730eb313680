package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() Entry {
	return Entry{
		Timestamp:  time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC),
		SessionID:  "s-1",
		FileName:   "chase_checking.csv",
		Profile:    "chase",
		Staged:     40,
		Skipped:    2,
		Duplicates: 3,
		Committed:  37,
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	e := sampleEntry()
	got, err := UnmarshalEntry(MarshalEntry(e))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestUnmarshalEntry_BadInput(t *testing.T) {
	_, err := UnmarshalEntry([]string{"too", "short"})
	assert.Error(t, err)

	row := MarshalEntry(sampleEntry())
	row[0] = "not-a-timestamp"
	_, err = UnmarshalEntry(row)
	assert.Error(t, err)

	row = MarshalEntry(sampleEntry())
	row[4] = "NaN"
	_, err = UnmarshalEntry(row)
	assert.Error(t, err)
}

func TestAppendAndRead(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, Append(root, []Entry{sampleEntry()}))
	require.NoError(t, Append(root, []Entry{sampleEntry()}))

	entries, err := Read(root)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "chase_checking.csv", entries[0].FileName)
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}
