package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/umbcsclub/eventbot/internal/domain"
)

// Telegram rejects messages over 4096 characters
const maxMessageLength = 4000

const maxFieldLength = 512

var previewTitles = map[domain.Flow]string{
	domain.FlowCreate: "Event Created",
	domain.FlowUpdate: "Event Updated",
	domain.FlowDelete: "Event Deletion",
}

// renderPreview formats a workflow preview with its status marker.
func renderPreview(p domain.Preview, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> @ %s\n", p.Status.Emoji(), previewTitles[p.Flow], at.Format("01/02/2006 15:04 MST"))
	if p.Author != "" {
		fmt.Fprintf(&b, "by %s\n", html.EscapeString(p.Author))
	}
	if p.EventID != "" {
		fmt.Fprintf(&b, "🆔 <code>%s</code>\n", html.EscapeString(p.EventID))
	}
	b.WriteString("\n")

	for _, f := range p.Fields {
		fmt.Fprintf(&b, "<b>%s</b>: %s\n", f.Name, previewValue(p.Flow, f))
	}

	fmt.Fprintf(&b, "\nStatus: %s", p.Status)
	return b.String()
}

func previewValue(flow domain.Flow, f domain.PreviewField) string {
	switch {
	case flow == domain.FlowDelete:
		return html.EscapeString(f.Old)
	case flow == domain.FlowUpdate && f.Changed:
		return html.EscapeString(f.Old) + " ➡️ " + html.EscapeString(f.New)
	case flow == domain.FlowUpdate:
		return html.EscapeString(f.New) + " <i>(unchanged)</i>"
	default:
		return html.EscapeString(f.New)
	}
}

// renderEvent formats one event in lang, falling back to refLang for
// missing translations.
// renderEvent formats one event; the result never exceeds maxMessageLength.
func renderEvent(e *domain.Event, lang, refLang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escapeWithin(e.Title.Get(lang, refLang), maxFieldLength))
	fmt.Fprintf(&b, "🆔 <code>%s</code>\n", escapeWithin(e.ID, maxFieldLength))
	fmt.Fprintf(&b, "🕒 %s %s\n", e.FormatDate(), e.FormatTimeRange())
	if loc := e.Location.Get(lang, refLang); loc != "" {
		fmt.Fprintf(&b, "📍 %s\n", escapeWithin(loc, maxFieldLength))
	}
	if desc := e.Description.Get(lang, refLang); desc != "" {
		b.WriteString(escapeWithin(desc, maxMessageLength-b.Len()-1))
		b.WriteString("\n")
	}
	return b.String()
}

// renderEvents formats the get listing, split into messages that fit
// Telegram's length limit.
func renderEvents(events []*domain.Event, lang, refLang string) []string {
	if len(events) == 0 {
		return []string{"📅 No events yet."}
	}
	parts := make([]string, 0, len(events)+1)
	parts = append(parts, fmt.Sprintf("📅 <b>Events</b> (%s)\n", html.EscapeString(lang)))
	for _, e := range events {
		parts = append(parts, renderEvent(e, lang, refLang))
	}
	return splitMessages(parts, maxMessageLength)
}

// splitMessages joins parts with blank lines into as few messages as fit
// within limit. A single oversized part is truncated.
func splitMessages(parts []string, limit int) []string {
	var out []string
	var cur strings.Builder
	for _, p := range parts {
		if cur.Len() > 0 && cur.Len()+len(p)+1 > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func renderLanguages(langs []string, refLang string) string {
	if len(langs) == 0 {
		return "🌐 No languages are configured."
	}
	var b strings.Builder
	b.WriteString("🌐 <b>Supported languages</b>\n\n")
	for _, l := range langs {
		b.WriteString("• <code>" + html.EscapeString(l) + "</code>")
		if l == refLang {
			b.WriteString(" (reference)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// userMessage maps an error to the reply shown to the operator. Unexpected
// errors get a generic message; the details are logged by the caller.
func userMessage(err error) string {
	appErr := domain.FromError(err)
	switch appErr.Code {
	case domain.CodeValidation:
		return "⚠️ " + html.EscapeString(appErr.Message)
	case domain.CodeNotFound, domain.CodeUnsupportedLanguage:
		return "❌ " + html.EscapeString(upperFirst(appErr.Message))
	case domain.CodeGateClosed:
		return "ℹ️ This action was already handled."
	case domain.CodePersistence:
		return "❌ Saving the change failed, please try again."
	default:
		return "❌ Something went wrong, please try again."
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// escapeWithin HTML-escapes s, cutting the plain text so the escaped
// result plus an ellipsis stays within max bytes. Entities are never split.
func escapeWithin(s string, max int) string {
	if escaped := html.EscapeString(s); len(escaped) <= max {
		return escaped
	}
	budget := max - len("…")
	var b strings.Builder
	for _, r := range s {
		piece := html.EscapeString(string(r))
		if b.Len()+len(piece) > budget {
			break
		}
		b.WriteString(piece)
	}
	return b.String() + "…"
}
