package watcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind describes the normalized kind of a schedule string:
// a cron expression (robfig/cron) or a fixed interval.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// Schedule is a parsed INTERVAL value. It implements cron.Schedule.
//
// Supported forms:
//   - Seconds: "3600"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//   - Cron: "*/5 * * * *", "0 30 * * * *", "@hourly", "@every 55m"
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
type Schedule struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "seconds" | "duration" | "hhmm"

	sched cron.Schedule
}

func (s Schedule) Next(t time.Time) time.Time { return s.sched.Next(t) }

func (s Schedule) String() string {
	if s.Kind == SpecInterval {
		return "every " + s.Every.String()
	}
	return s.Cron
}

var (
	reHHMM  = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)
	reDigit = regexp.MustCompile(`^\d+$`)

	cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// ParseSchedule parses a schedule string into a cron expression or an interval.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Schedule{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return parseCron(expr)
	case strings.HasPrefix(low, "interval:"):
		return parseInterval(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return parseInterval(s[len("every:"):])
	}

	// any whitespace or leading '@' => cron
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}

	sched, err := parseInterval(s)
	if err != nil {
		return Schedule{}, fmt.Errorf(
			"invalid schedule %q (use seconds like '3600', duration like '1h', HH:MM like '01:00', or cron like '@hourly')",
			raw,
		)
	}
	return sched, nil
}

func parseCron(expr string) (Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return Schedule{Kind: SpecCron, Cron: expr, Source: "cron", sched: sched}, nil
}

func parseInterval(v string) (Schedule, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Schedule{}, fmt.Errorf("interval required")
	}

	var (
		d   time.Duration
		src string
	)
	switch {
	case reDigit.MatchString(v):
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid interval %q: %w", v, err)
		}
		d, src = time.Duration(n)*time.Second, "seconds"
	case reHHMM.MatchString(v):
		hd, err := parseHHMMDuration(v)
		if err != nil {
			return Schedule{}, err
		}
		d, src = hd, "hhmm"
	default:
		pd, err := time.ParseDuration(v)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid interval %q (use seconds, HH:MM or Go duration like '55m')", v)
		}
		d, src = pd, "duration"
	}
	if d < time.Second {
		return Schedule{}, fmt.Errorf("interval must be >= 1s")
	}
	return Schedule{Kind: SpecInterval, Every: d, Source: src, sched: cron.Every(d)}, nil
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
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}
