package condition

import (
	"strconv"
	"strings"
)

// lastStep stands in for esc_step_to = 0, which means "until the last step".
const lastStep = 9999

var timeUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 7 * 86400,
}

// ParsePeriod converts a time-unit string ("60", "5m", "1h", "{$ESC_PERIOD}") to seconds.
// User macros are looked up in macros; false means the period is unknown. An empty period,
// or a macro resolving to one, is unknown.
func ParsePeriod(raw string, macros map[string]string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "{$") && strings.HasSuffix(s, "}") {
		value, ok := macros[s]
		if !ok {
			return 0, false
		}
		s = strings.TrimSpace(value)
		if s == "" || strings.HasPrefix(s, "{") {
			return 0, false
		}
	}

	multiplier := int64(1)
	if m, ok := timeUnits[s[len(s)-1]]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n * multiplier, true
}

// EscalationDelays maps each escalation step to its delay in seconds since step 1.
// A nil entry means the delay is unknown; once a step is unknown every later step is too.
//
// For steps covered by several operations the smallest period wins. An unknown period only
// fills a step nobody else covered. Unknown and numeric periods never replace each other,
// so the first operation covering a step decides which kind it holds.
func EscalationDelays(operations []Operation, defaultPeriod string, macros map[string]string) map[int]*int64 {
	var def *int64
	if sec, ok := ParsePeriod(defaultPeriod, macros); ok {
		def = &sec
	}

	periods := make(map[int]*int64)
	maxStep := 0

	for _, op := range operations {
		from := op.EscStepFrom
		if from < 1 {
			from = 1
		}
		to := op.EscStepTo
		if to == 0 {
			to = lastStep
		}

		var period *int64
		if sec, ok := ParsePeriod(op.EscPeriod, macros); ok {
			if sec == 0 {
				period = def
			} else {
				period = &sec
			}
		}

		if from > maxStep {
			maxStep = from
		}

		for i := from; i <= to; i++ {
			current, set := periods[i]
			switch {
			case !set:
				periods[i] = period
			case period == nil || current == nil:
			case *current > *period:
				periods[i] = period
			}
		}
	}

	zero := int64(0)
	delays := map[int]*int64{1: &zero}
	for i := 1; i <= maxStep; i++ {
		period, ok := periods[i]
		if !ok {
			period = def
		}
		if period == nil || delays[i] == nil {
			delays[i+1] = nil
			continue
		}
		next := *delays[i] + *period
		delays[i+1] = &next
	}

	return delays
}
