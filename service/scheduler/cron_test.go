package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCron(t *testing.T) {
	t.Run("hourly", func(t *testing.T) {
		cron, err := ParseCron("0 * * * *")
		assert.NoError(t, err)
		assert.Equal(t, []int{0}, cron.Minutes)
		assert.Len(t, cron.Hours, 24)
		assert.Len(t, cron.DaysOfMonth, 31)
		assert.Len(t, cron.Months, 12)
		assert.Len(t, cron.DaysOfWeek, 7)
	})

	t.Run("step", func(t *testing.T) {
		cron, err := ParseCron("*/15 * * * *")
		assert.NoError(t, err)
		assert.Equal(t, []int{0, 15, 30, 45}, cron.Minutes)
	})

	t.Run("range", func(t *testing.T) {
		cron, err := ParseCron("0 9-17 * * *")
		assert.NoError(t, err)
		assert.Equal(t, []int{9, 10, 11, 12, 13, 14, 15, 16, 17}, cron.Hours)
	})

	t.Run("list", func(t *testing.T) {
		cron, err := ParseCron("0 0 1,15 * *")
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 15}, cron.DaysOfMonth)
	})

	t.Run("range with step", func(t *testing.T) {
		cron, err := ParseCron("10-30/10 * * * *")
		assert.NoError(t, err)
		assert.Equal(t, []int{10, 20, 30}, cron.Minutes)
	})

	t.Run("weekdays", func(t *testing.T) {
		cron, err := ParseCron("30 9 * * 1-5")
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, cron.DaysOfWeek)
	})
}

func TestParseCron_Invalid(t *testing.T) {
	for _, expression := range []string{
		"",
		"* * * *",
		"* * * * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * 32 * *",
		"* * * 13 *",
		"* * * * 7",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
	} {
		_, err := ParseCron(expression)
		assert.ErrorIs(t, err, ErrInvalidCron, expression)
	}
}

func TestCronExpression_Matches(t *testing.T) {
	cron, err := ParseCron("30 9 * * 1-5")
	assert.NoError(t, err)

	// Monday 2026-03-02 09:30
	assert.True(t, cron.Matches(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)))
	// wrong minute
	assert.False(t, cron.Matches(time.Date(2026, 3, 2, 9, 31, 0, 0, time.UTC)))
	// Sunday 2026-03-01
	assert.False(t, cron.Matches(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)))
}

func TestCronExpression_MatchesDayFieldsJointly(t *testing.T) {
	// both day fields restricted: the 15th AND a Monday must hold together
	cron, err := ParseCron("0 0 15 * 1")
	assert.NoError(t, err)

	// 2026-06-15 is a Monday
	assert.True(t, cron.Matches(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))
	// 2026-07-15 is a Wednesday
	assert.False(t, cron.Matches(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)))
	// 2026-06-22 is a Monday but not the 15th
	assert.False(t, cron.Matches(time.Date(2026, 6, 22, 0, 0, 0, 0, time.UTC)))
}

func TestCronExpression_Next(t *testing.T) {
	cron, err := ParseCron("*/15 * * * *")
	assert.NoError(t, err)

	from := time.Date(2026, 3, 2, 9, 2, 10, 0, time.UTC)
	next, ok := cron.Next(from, time.Hour)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), next)

	// the scan is exclusive of the origin minute
	next, ok = cron.Next(time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), time.Hour)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), next)
}

func TestCronExpression_NextOutsideWindow(t *testing.T) {
	// fires on Jan 1st only; a one-hour window in March holds no match
	cron, err := ParseCron("0 0 1 1 *")
	assert.NoError(t, err)
	_, ok := cron.Next(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), time.Hour)
	assert.False(t, ok)
}
