package auction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	end := time.Now()
	a := &Auction{EndTime: end}

	assert.False(t, a.Expired(end.Add(-time.Nanosecond)))
	// A bid at exactly the deadline is already late
	assert.True(t, a.Expired(end))
	assert.True(t, a.Expired(end.Add(time.Nanosecond)))
}

func TestRemainingTime(t *testing.T) {
	end := time.Now()
	a := &Auction{EndTime: end}

	assert.Equal(t, time.Minute, a.RemainingTime(end.Add(-time.Minute)))
	assert.Equal(t, time.Duration(0), a.RemainingTime(end))
	assert.Equal(t, time.Duration(0), a.RemainingTime(end.Add(time.Hour)))
}

func TestExtendDeadline(t *testing.T) {
	now := time.Now()
	a := &Auction{EndTime: now.Add(time.Hour)}

	a.ExtendDeadline(now, 10*time.Second)
	// The new deadline replaces the old one even when it was further out
	assert.Equal(t, now.Add(10*time.Second), a.EndTime)
}

func TestRecordOutcome_IsMonotonic(t *testing.T) {
	winnerID := uuid.New()
	finalPrice := int64(500)

	a := &Auction{Status: StatusActive}
	a.RecordOutcome(&winnerID, &finalPrice)

	assert.Equal(t, StatusFinished, a.Status)
	assert.Equal(t, &winnerID, a.WinnerID)
	assert.Equal(t, &finalPrice, a.FinalPrice)

	// A second outcome never overwrites the first
	other := uuid.New()
	a.RecordOutcome(&other, nil)
	assert.Equal(t, winnerID, *a.WinnerID)
	assert.Equal(t, finalPrice, *a.FinalPrice)
}

func TestRecordOutcome_Unsold(t *testing.T) {
	a := &Auction{Status: StatusActive}
	a.RecordOutcome(nil, nil)

	assert.Equal(t, StatusFinished, a.Status)
	assert.Nil(t, a.WinnerID)
	assert.Nil(t, a.FinalPrice)
}
