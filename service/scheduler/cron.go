package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/viant/parsly"
)

// cronField describes the bounds of one of the five cron fields.
type cronField struct {
	name string
	min  int
	max  int
}

var cronFields = [5]cronField{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day-of-month", min: 1, max: 31},
	{name: "month", min: 1, max: 12},
	{name: "day-of-week", min: 0, max: 6},
}

// CronExpression holds the five parsed integer sets of a standard 5-field
// cron expression: minute, hour, day-of-month, month, day-of-week (0=Sunday).
// Matching uses AND semantics across all five fields, including day-of-month
// and day-of-week together; this deliberately diverges from POSIX cron's
// OR-when-both-restricted rule in favour of the simpler reading.
type CronExpression struct {
	Expression  string `json:"expression" yaml:"expression"`
	Minutes     []int  `json:"minutes" yaml:"minutes"`
	Hours       []int  `json:"hours" yaml:"hours"`
	DaysOfMonth []int  `json:"daysOfMonth" yaml:"daysOfMonth"`
	Months      []int  `json:"months" yaml:"months"`
	DaysOfWeek  []int  `json:"daysOfWeek" yaml:"daysOfWeek"`
}

// ParseCron parses a 5-field cron expression
// (minute hour day-of-month month day-of-week). Each field independently
// supports "*", comma lists, "a-b" ranges and "*/n", "a/n" or "a-b/n" steps.
func ParseCron(expression string) (*CronExpression, error) {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: %q has %d field(s), expected 5", ErrInvalidCron, expression, len(fields))
	}
	ret := &CronExpression{Expression: expression}
	for i, field := range fields {
		values, err := parseCronField(field, cronFields[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v field: %v", ErrInvalidCron, expression, cronFields[i].name, err)
		}
		switch i {
		case 0:
			ret.Minutes = values
		case 1:
			ret.Hours = values
		case 2:
			ret.DaysOfMonth = values
		case 3:
			ret.Months = values
		case 4:
			ret.DaysOfWeek = values
		}
	}
	return ret, nil
}

// parseCronField expands one field into its sorted value set.
func parseCronField(field string, bounds cronField) ([]int, error) {
	cursor := parsly.NewCursor("", []byte(field), 0)
	seen := make(map[int]bool)
	for {
		if err := parseCronTerm(cursor, bounds, seen); err != nil {
			return nil, err
		}
		if cursor.Pos >= cursor.InputSize {
			break
		}
		matched := cursor.MatchOne(commaToken)
		if matched.Code != commaToken.Code {
			return nil, cursor.NewError(commaToken)
		}
	}
	values := make([]int, 0, len(seen))
	for value := range seen {
		values = append(values, value)
	}
	sort.Ints(values)
	return values, nil
}

// parseCronTerm consumes a single comma-separated term: "*", "*/n", "a",
// "a-b", "a/n" or "a-b/n".
func parseCronTerm(cursor *parsly.Cursor, bounds cronField, seen map[int]bool) error {
	lo, hi := bounds.min, bounds.max
	step := 1

	matched := cursor.MatchAny(starToken, numberToken)
	switch matched.Code {
	case starToken.Code:
	case numberToken.Code:
		value, err := strconv.Atoi(matched.Text(cursor))
		if err != nil {
			return err
		}
		lo, hi = value, value
		if matched = cursor.MatchOne(hyphenToken); matched.Code == hyphenToken.Code {
			matched = cursor.MatchOne(numberToken)
			if matched.Code != numberToken.Code {
				return cursor.NewError(numberToken)
			}
			if hi, err = strconv.Atoi(matched.Text(cursor)); err != nil {
				return err
			}
		}
	default:
		return cursor.NewError(numberToken)
	}

	if matched = cursor.MatchOne(slashToken); matched.Code == slashToken.Code {
		matched = cursor.MatchOne(numberToken)
		if matched.Code != numberToken.Code {
			return cursor.NewError(numberToken)
		}
		value, err := strconv.Atoi(matched.Text(cursor))
		if err != nil {
			return err
		}
		if value <= 0 {
			return fmt.Errorf("step must be positive, got %d", value)
		}
		step = value
		// "a/n" with no explicit range runs from a to the field maximum
		if lo == hi {
			hi = bounds.max
		}
	}

	if lo < bounds.min || hi > bounds.max || lo > hi {
		return fmt.Errorf("value out of range [%d-%d]: %d-%d", bounds.min, bounds.max, lo, hi)
	}
	for value := lo; value <= hi; value += step {
		seen[value] = true
	}
	return nil
}

// Matches returns true iff every one of the five fields matches the supplied
// time, seconds ignored.
func (e *CronExpression) Matches(t time.Time) bool {
	return containsInt(e.Minutes, t.Minute()) &&
		containsInt(e.Hours, t.Hour()) &&
		containsInt(e.DaysOfMonth, t.Day()) &&
		containsInt(e.Months, int(t.Month())) &&
		containsInt(e.DaysOfWeek, int(t.Weekday()))
}

// Next scans forward minute by minute from the supplied time (exclusive) and
// returns the first match within the window, or false when the window holds
// none. Schedules firing less than once per window are the caller's problem.
func (e *CronExpression) Next(from time.Time, window time.Duration) (time.Time, bool) {
	candidate := from.Truncate(time.Minute)
	limit := from.Add(window)
	for {
		candidate = candidate.Add(time.Minute)
		if candidate.After(limit) {
			return time.Time{}, false
		}
		if e.Matches(candidate) {
			return candidate, true
		}
	}
}

func containsInt(values []int, value int) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
