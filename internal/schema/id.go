package schema

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// TimestampLayout matches the millisecond ISO-8601 form used in stored documents.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is the calendar-day form of task dates and exam dates.
const DateLayout = "2006-01-02"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// suffixLen is the length of the random part of generated IDs.
const suffixLen = 9

// NewTaskID returns an ID of the form task-<unix millis>-<9 base36 chars>.
func NewTaskID(now time.Time) string {
	return fmt.Sprintf("task-%d-%s", now.UnixMilli(), randomSuffix())
}

// NewExamID returns an ID of the form <unix millis>-<9 base36 chars>.
func NewExamID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), randomSuffix())
}

// FormatTimestamp renders t the way created timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored created timestamp.
// Unparseable values yield the zero time, which sorts first and never wins a merge.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

func randomSuffix() string {
	b := make([]byte, suffixLen)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}
