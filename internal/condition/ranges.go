package condition

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

type periodWindow struct {
	dayFrom, dayTo int // 1 = Monday ... 7 = Sunday
	from, to       int // seconds since midnight, to is exclusive
}

// parseTimePeriod parses "d[-d],hh:mm-hh:mm" windows separated by ';'.
func parseTimePeriod(raw string) ([]periodWindow, error) {
	var windows []periodWindow
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		days, hours, ok := strings.Cut(part, ",")
		if !ok {
			return nil, fmt.Errorf("invalid time period %q", part)
		}

		var w periodWindow
		var err error
		if from, to, isRange := strings.Cut(days, "-"); isRange {
			if w.dayFrom, err = parseWeekday(from); err != nil {
				return nil, err
			}
			if w.dayTo, err = parseWeekday(to); err != nil {
				return nil, err
			}
		} else {
			if w.dayFrom, err = parseWeekday(days); err != nil {
				return nil, err
			}
			w.dayTo = w.dayFrom
		}
		if w.dayFrom > w.dayTo {
			return nil, fmt.Errorf("invalid day range %q", days)
		}

		from, to, isRange := strings.Cut(hours, "-")
		if !isRange {
			return nil, fmt.Errorf("invalid time range %q", hours)
		}
		if w.from, err = parseClock(from); err != nil {
			return nil, err
		}
		if w.to, err = parseClock(to); err != nil {
			return nil, err
		}
		if w.from >= w.to {
			return nil, fmt.Errorf("invalid time range %q", hours)
		}
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("empty time period")
	}
	return windows, nil
}

// InTimePeriod reports whether t falls inside any window of the period.
func InTimePeriod(raw string, t time.Time) (bool, error) {
	windows, err := parseTimePeriod(raw)
	if err != nil {
		return false, err
	}
	day := int(t.Weekday())
	if day == 0 {
		day = 7
	}
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	for _, w := range windows {
		if day >= w.dayFrom && day <= w.dayTo && sec >= w.from && sec < w.to {
			return true, nil
		}
	}
	return false, nil
}

func parseWeekday(s string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || d < 1 || d > 7 {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return d, nil
}

func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || m < 0 || m > 59 || h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*3600 + m*60, nil
}

// InIPRange checks ip against a comma separated list of addresses, CIDR networks
// and last-octet ranges such as "192.168.1.1-254".
func InIPRange(list, ip string) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false, fmt.Errorf("invalid address %q: %w", ip, err)
	}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		switch {
		case strings.Contains(entry, "/"):
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return false, fmt.Errorf("invalid network %q: %w", entry, err)
			}
			if prefix.Contains(addr) {
				return true, nil
			}
		case strings.Contains(entry, "-"):
			first, last, _ := strings.Cut(entry, "-")
			start, err := netip.ParseAddr(first)
			if err != nil || !start.Is4() {
				return false, fmt.Errorf("invalid range %q", entry)
			}
			end, err := strconv.Atoi(last)
			if err != nil || end < 0 || end > 255 {
				return false, fmt.Errorf("invalid range %q", entry)
			}
			if !addr.Is4() {
				continue
			}
			a, s := addr.As4(), start.As4()
			if a[0] == s[0] && a[1] == s[1] && a[2] == s[2] && int(a[3]) >= int(s[3]) && int(a[3]) <= end {
				return true, nil
			}
		default:
			single, err := netip.ParseAddr(entry)
			if err != nil {
				return false, fmt.Errorf("invalid address %q: %w", entry, err)
			}
			if single == addr {
				return true, nil
			}
		}
	}
	return false, nil
}

// InPortRange checks port against "22,80-90" style lists.
func InPortRange(list string, port int) (bool, error) {
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		first, last, isRange := strings.Cut(entry, "-")
		from, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil {
			return false, fmt.Errorf("invalid port %q", entry)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(last)); err != nil {
				return false, fmt.Errorf("invalid port %q", entry)
			}
		}
		if port >= from && port <= to {
			return true, nil
		}
	}
	return false, nil
}
