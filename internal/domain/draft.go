package domain

import "strings"

// MaxDescriptionLength is the longest description an operator may enter.
const MaxDescriptionLength = 1000

// Draft holds operator-entered reference-language values before translation.
// It only lives for one interaction sequence.
type Draft struct {
	Title       string `validate:"required"`
	Date        string `validate:"required"`
	TimeRange   string `validate:"required"`
	Location    string `validate:"required"`
	Description string `validate:"required,max=1000"`
}

// Normalize trims surrounding whitespace from every field.
func (d Draft) Normalize() Draft {
	return Draft{
		Title:       strings.TrimSpace(d.Title),
		Date:        strings.TrimSpace(d.Date),
		TimeRange:   strings.TrimSpace(d.TimeRange),
		Location:    strings.TrimSpace(d.Location),
		Description: strings.TrimSpace(d.Description),
	}
}
