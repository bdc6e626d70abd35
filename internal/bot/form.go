package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/umbcsclub/eventbot/internal/domain"
)

// Form labels. The operator replies to the form message with one
// "Label: value" line per field; Description takes the rest of the message.
const (
	labelTitle       = "Title"
	labelDate        = "Date"
	labelTime        = "Time"
	labelLocation    = "Location"
	labelDescription = "Description"
)

var formLabels = []string{labelTitle, labelDate, labelTime, labelLocation, labelDescription}

// formPrompt renders the form for a create or update workflow. For updates
// the current reference-language values are filled in so the operator can
// copy the message, edit it and send it back.
func formPrompt(flow domain.Flow, eventID string, d domain.Draft, tzName string) string {
	var b strings.Builder
	if flow == domain.FlowUpdate {
		fmt.Fprintf(&b, "✏️ <b>Editing event</b> <code>%s</code>\n\n", html.EscapeString(eventID))
	} else {
		b.WriteString("📝 <b>Create an event</b>\n\n")
	}
	fmt.Fprintf(&b, "Reply to this message with the details (24 hour, %s time):\n\n", html.EscapeString(tzName))
	b.WriteString("<code>")
	b.WriteString(html.EscapeString(formBody(d)))
	b.WriteString("</code>\n\n")
	fmt.Fprintf(&b, "Description can span several lines, up to %d characters. /cancel to discard.", domain.MaxDescriptionLength)
	return b.String()
}

func formBody(d domain.Draft) string {
	date := d.Date
	if date == "" {
		date = "MM/DD/YYYY"
	}
	timeRange := d.TimeRange
	if timeRange == "" {
		timeRange = "HH:MM-HH:MM"
	}
	return strings.Join([]string{
		labelTitle + ": " + d.Title,
		labelDate + ": " + date,
		labelTime + ": " + timeRange,
		labelLocation + ": " + d.Location,
		labelDescription + ": " + d.Description,
	}, "\n")
}

// parseForm reads a form reply. Labels are case-insensitive and may appear
// in any order; a missing field is left empty for validation to report.
func parseForm(text string) (domain.Draft, error) {
	var d domain.Draft
	seen := make(map[string]bool, len(formLabels))

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		label, value, ok := splitLabel(line)
		if !ok {
			return domain.Draft{}, domain.Validation(fmt.Sprintf("unrecognized line %q, expected \"Label: value\"", strings.TrimSpace(line)))
		}
		if seen[label] {
			return domain.Draft{}, domain.Validation(fmt.Sprintf("%s is given more than once", strings.ToLower(label)))
		}
		seen[label] = true

		switch label {
		case labelTitle:
			d.Title = value
		case labelDate:
			d.Date = value
		case labelTime:
			d.TimeRange = value
		case labelLocation:
			d.Location = value
		case labelDescription:
			rest := append([]string{value}, lines[i+1:]...)
			d.Description = strings.TrimSpace(strings.Join(rest, "\n"))
			i = len(lines)
		}
	}

	if len(seen) == 0 {
		return domain.Draft{}, domain.Validation("the form is empty")
	}
	return d.Normalize(), nil
}

func splitLabel(line string) (string, string, bool) {
	head, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	head = strings.TrimSpace(head)
	for _, l := range formLabels {
		if strings.EqualFold(head, l) {
			return l, strings.TrimSpace(value), true
		}
	}
	// accepted alias for Location
	if strings.EqualFold(head, "Place") {
		return labelLocation, strings.TrimSpace(value), true
	}
	return "", "", false
}
