package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseInterval parses an activity interval from config.
//
// Supported forms:
//   - Go duration: "30s", "2h30m"
//   - HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//   - cron descriptor: "@every 5m"
//
// Optional prefixes "interval:" and "every:" are accepted. Other cron
// expressions are rejected: activities only run at fixed intervals.
func ParseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("interval required")
	}

	low := strings.ToLower(s)
	for _, p := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, p) {
			s = strings.TrimSpace(s[len(p):])
			low = strings.ToLower(s)
			break
		}
	}

	if strings.HasPrefix(low, "@") {
		return parseDescriptor(s)
	}
	if reHHMM.MatchString(s) {
		return parseHHMMDuration(s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q (use HH:MM, '@every 5m' or a duration like '55m')", raw)
	}
	if d <= 0 {
		return 0, ErrInvalidInterval
	}
	return d, nil
}

// parseDescriptor accepts "@every <duration>" with the duration kept exactly.
// cron.Every rounds to whole seconds, so it only validates other descriptors.
func parseDescriptor(s string) (time.Duration, error) {
	const every = "@every"
	if low := strings.ToLower(s); strings.HasPrefix(low, every) && (len(s) == len(every) || s[len(every)] == ' ' || s[len(every)] == '\t') {
		rest := strings.TrimSpace(s[len(every):])
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid descriptor %q: %w", s, err)
		}
		if d <= 0 {
			return 0, ErrInvalidInterval
		}
		return d, nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return 0, fmt.Errorf("invalid descriptor %q: %w", s, err)
	}
	return 0, fmt.Errorf("descriptor %q is not a fixed interval (use '@every <duration>')", s)
}

func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, ErrInvalidInterval
	}
	return d, nil
}
