package schema

import "sort"

// DefaultColor is used for subjects missing from the palette.
const DefaultColor = "#3788d8"

// DefaultSubjectColors is the fixed subject palette of the calendar.
var DefaultSubjectColors = map[string]string{
	"Religion":    "#FF6B6B",
	"Matematicas": "#25a6da",
	"Fisica":      "#766ec5",
	"Lengua":      "#e61919",
	"Historia":    "#008000",
	"Filosofia":   "#b8b814",
	"Tecnologia":  "#FF8ED4",
	"Frances":     "#FF9FF3",
}

// DefaultLeadTimes is the number of study reminder days suggested per
// subject when an exam is added without an explicit reminder time.
var DefaultLeadTimes = map[string]int{
	"Religion":    0,
	"Matematicas": 2,
	"Fisica":      3,
	"Lengua":      4,
	"Historia":    5,
	"Filosofia":   5,
	"Tecnologia":  2,
	"Frances":     1,
}

// Subjects returns the subjects known to the default palette, sorted.
func Subjects() []string {
	out := make([]string, 0, len(DefaultSubjectColors))
	for s := range DefaultSubjectColors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

