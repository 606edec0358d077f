package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionState_Terminal(t *testing.T) {
	assert.False(t, SubmissionPending.Terminal())
	assert.True(t, SubmissionConfirmed.Terminal())
	assert.True(t, SubmissionReverted.Terminal())
	assert.True(t, SubmissionErrored.Terminal())
}

func TestSubmissionRecord_ResolvesOnce(t *testing.T) {
	r := NewSubmissionRecord("b1", "0xuser")
	assert.Equal(t, SubmissionPending, r.State())

	assert.False(t, r.Resolve(SubmissionPending, "", ""), "pending is not a terminal target")
	assert.True(t, r.Resolve(SubmissionConfirmed, "0xr1", ""))
	assert.False(t, r.Resolve(SubmissionReverted, "0xr2", "late revert"))

	assert.Equal(t, SubmissionConfirmed, r.State())
	assert.Equal(t, "0xr1", r.ReceiptID())

	snap := r.Snapshot()
	assert.Equal(t, "b1", snap.BatchID)
	assert.Equal(t, SubmissionConfirmed, snap.State)
	require.NotNil(t, snap.ResolvedAt)
}

func TestSubmissionRecord_MarkReleasedOnce(t *testing.T) {
	r := NewSubmissionRecord("b1", "0xuser")
	assert.True(t, r.MarkReleased())
	assert.False(t, r.MarkReleased())
}

func TestSubmissionRecord_SnapshotWhilePending(t *testing.T) {
	snap := NewSubmissionRecord("b1", "0xuser").Snapshot()
	assert.Equal(t, SubmissionPending, snap.State)
	assert.Nil(t, snap.ResolvedAt)
}

func TestProcessedReceipts(t *testing.T) {
	p := NewProcessedReceipts()
	assert.True(t, p.Add("0xr"))
	assert.False(t, p.Add("0xr"))
	assert.True(t, p.Has("0xr"))
	assert.False(t, p.Has("0xother"))
	assert.Equal(t, 1, p.Len())
}
