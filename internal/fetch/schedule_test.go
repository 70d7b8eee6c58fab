package fetch

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleDoubles(t *testing.T) {
	s := NewSchedule(time.Second, 0)
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, s.Next())
	}
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}, got)
}

func TestScheduleReset(t *testing.T) {
	s := NewSchedule(time.Second, 0)
	s.Next()
	s.Next()
	s.Reset()
	assert.Equal(t, time.Second, s.Next())
}

func TestScheduleCap(t *testing.T) {
	s := NewSchedule(time.Second, 3*time.Second)
	assert.Equal(t, time.Second, s.Next())
	assert.Equal(t, 2*time.Second, s.Next())
	assert.Equal(t, 3*time.Second, s.Next())
	assert.Equal(t, 3*time.Second, s.Next())
}

func TestScheduleSaturates(t *testing.T) {
	s := NewSchedule(time.Second, 0)
	var last time.Duration
	for i := 0; i < 100; i++ {
		d := s.Next()
		assert.GreaterOrEqual(t, d, last, "delay must never shrink (step %d)", i)
		last = d
	}
	assert.Equal(t, time.Duration(math.MaxInt64), last)
}

func TestScheduleDefaultInitial(t *testing.T) {
	assert.Equal(t, time.Second, NewSchedule(0, 0).Next())
}
