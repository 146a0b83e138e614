package gitredate

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// TimePair carries the author and the committer time of one commit.
type TimePair struct {
	Author    time.Time
	Committer time.Time
}

// Rule computes the replacement timestamps for a commit.
//
// Implementations must be pure: the result may only depend on the inputs and
// the configuration of the rule itself, so that running the same rewrite
// twice produces identical commits. ordinal is the position of the commit in
// the topological order of the history being rewritten, total the number of
// commits in that order.
type Rule interface {
	Times(ordinal int, total int, orig TimePair) TimePair
}

// Direction selects which end of the history the start timestamp of an
// [IntervalRule] anchors to.
type Direction string

const (
	// OldestFirst gives the start timestamp to the first commit in
	// topological order and steps forward in time.
	OldestFirst Direction = "oldest-first"

	// NewestFirst gives the start timestamp to the last commit in
	// topological order and steps backward in time, so ancestors still
	// predate their descendants.
	NewestFirst Direction = "newest-first"
)

// RuleConfig is the user supplied description of an [IntervalRule].
//
// Start accepts RFC 3339 ("2020-01-01T09:30:00+02:00", the offset is kept for
// the rewritten timestamps) or a bare date ("2020-01-01", midnight UTC).
// Interval and Unit together give the spacing between consecutive commits.
// JitterBoundSecs adds, when positive, a deterministic per-commit offset of
// up to that many seconds, drawn from JitterSeed.
type RuleConfig struct {
	Start           string    `yaml:"start"`
	Interval        int64     `yaml:"interval"`
	Unit            string    `yaml:"unit"`
	Direction       Direction `yaml:"direction"`
	JitterBoundSecs int64     `yaml:"jitter_bound_secs"`
	JitterSeed      int64     `yaml:"jitter_seed"`
}

// ParseStart parses the start timestamp of a [RuleConfig].
func ParseStart(str string) (time.Time, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return time.Time{}, fmt.Errorf("start timestamp is empty")
	}

	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", str); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cannot parse start timestamp: %s", str)
}

// ParseUnit maps the name of an interval unit onto its duration. Accepted
// units are second, minute, hour and day, with or without a trailing s.
func ParseUnit(unit string) (time.Duration, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "s") {
	case "second", "sec":
		return time.Second, nil
	case "minute", "min":
		return time.Minute, nil
	case "hour":
		return time.Hour, nil
	case "day":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown interval unit: %s", unit)
	}
}

// IntervalRule is a [Rule] that spaces the commits a fixed interval apart,
// anchored at a configured start timestamp, optionally spread by a
// deterministic jitter. Author and committer time of a commit get the same
// instant.
type IntervalRule struct {
	start     time.Time
	interval  time.Duration
	direction Direction
	jitter    time.Duration
	seed      int64
}

// NewIntervalRule validates the config and creates the rule. Failures wrap
// [ErrInvalidRuleConfig].
func NewIntervalRule(config RuleConfig) (*IntervalRule, error) {
	start, err := ParseStart(config.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRuleConfig, err.Error())
	}

	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidRuleConfig, config.Interval)
	}

	unit, err := ParseUnit(config.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRuleConfig, err.Error())
	}

	direction := config.Direction
	if direction == "" {
		direction = OldestFirst
	}
	if direction != OldestFirst && direction != NewestFirst {
		return nil, fmt.Errorf("%w: unknown direction: %s", ErrInvalidRuleConfig, direction)
	}

	if config.JitterBoundSecs < 0 {
		return nil, fmt.Errorf("%w: jitter bound must not be negative, got %d", ErrInvalidRuleConfig, config.JitterBoundSecs)
	}

	return &IntervalRule{
		start:     start,
		interval:  time.Duration(config.Interval) * unit,
		direction: direction,
		jitter:    time.Duration(config.JitterBoundSecs) * time.Second,
		seed:      config.JitterSeed,
	}, nil
}

// Times implements [Rule].
func (r *IntervalRule) Times(ordinal int, total int, _ TimePair) TimePair {
	step := ordinal
	if r.direction == NewestFirst {
		step = ordinal - (total - 1)
	}

	t := r.start.Add(time.Duration(step) * r.interval)
	if r.jitter > 0 {
		t = t.Add(r.jitterAt(ordinal))
	}

	return TimePair{Author: t, Committer: t}
}

// jitterAt draws the jitter for one ordinal. A fresh source seeded from the
// configured seed and the ordinal keeps the draw a pure function of the
// inputs.
func (r *IntervalRule) jitterAt(ordinal int) time.Duration {
	rng := rand.New(rand.NewSource(r.seed ^ int64(uint64(ordinal)*0x9e3779b97f4a7c15)))

	return time.Duration(rng.Int63n(int64(r.jitter)))
}
