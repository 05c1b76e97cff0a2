package condition

import "strings"

// Style marks how the rendering layer should display a segment.
type Style string

const (
	StylePlain  Style = ""
	StyleItalic Style = "italic"
)

// Segment is one fragment of a condition description.
type Segment struct {
	Text  string `json:"text"`
	Style Style  `json:"style,omitempty"`
}

func plain(text string) Segment  { return Segment{Text: text} }
func italic(text string) Segment { return Segment{Text: text, Style: StyleItalic} }

// Describe builds the human readable phrase of a condition. value and value2 are
// expected to be display values already, see ResolveValues.
func Describe(loc Localizer, t ConditionType, op Operator, value, value2 string) []Segment {
	loc = orPlain(loc)

	switch t {
	case TypeSuppressed:
		if op == OperatorNo {
			return []Segment{plain(loc.Localize("Problem is not suppressed"))}
		}
		return []Segment{plain(loc.Localize("Problem is suppressed"))}

	case TypeEventAcknowledged:
		if value == "1" {
			return []Segment{plain(loc.Localize("Event is acknowledged"))}
		}
		return []Segment{plain(loc.Localize("Event is not acknowledged"))}

	case TypeEventTagValue:
		return []Segment{
			plain(loc.Localize("Value of tag")),
			italic(value2),
			plain(OperatorLabel(loc, op)),
			italic(value),
		}
	}

	return []Segment{
		plain(TypeLabel(loc, t)),
		plain(OperatorLabel(loc, op)),
		italic(value),
	}
}

// Text joins segments with single spaces, dropping empty fragments.
func Text(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}
