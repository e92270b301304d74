package scheduler

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	numberCode = iota
	starCode
	commaCode
	hyphenCode
	slashCode
)

// Token definitions for a single cron field
var (
	numberToken = parsly.NewToken(numberCode, "Number", newNumberMatcher())
	starToken   = parsly.NewToken(starCode, "*", matcher.NewByte('*'))
	commaToken  = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	hyphenToken = parsly.NewToken(hyphenCode, "-", matcher.NewByte('-'))
	slashToken  = parsly.NewToken(slashCode, "/", matcher.NewByte('/'))
)

func newNumberMatcher() parsly.Matcher {
	return &numberMatcher{}
}

// numberMatcher matches an unsigned decimal integer
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] < '0' || input[i] > '9' {
			break
		}
		matched++
	}
	return matched
}
