package training

import (
	"fmt"

	"formazing-backend/internal/model"
	"formazing-backend/internal/parse"
)

const (
	defaultPeriod = "ONCE"
	defaultName   = "Formazione"
)

// GenerateCode builds {area}-{name}-{year}-{period}-{seq}, with the sequence
// zero-padded to at least two digits.
func GenerateCode(t *model.Training, seq int64, year int) string {
	name := parse.CodeSegment(t.Name)
	if name == "" {
		name = defaultName
	}
	period := parse.CodeSegment(t.Period)
	if period == "" {
		period = defaultPeriod
	}
	return fmt.Sprintf("%s-%s-%d-%s-%02d", t.PrimaryArea(), name, year, period, seq)
}
