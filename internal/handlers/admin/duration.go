package admin

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	appErrors "github.com/iamwavecut/grouppolice/internal/errors"
)

const (
	DefaultMuteDuration = 60 * time.Minute
	// MaxMuteDuration keeps restrictions finite; Telegram treats past or far-future until dates as forever.
	MaxMuteDuration = 366 * 24 * time.Hour
)

var durationPattern = regexp.MustCompile(`^(\d+)([mhd]?)$`)

// ParseDuration reads <n>[m|h|d]; a bare number is minutes and the empty string is the default.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Wrapf(appErrors.ErrInvalidInput, "duration %q", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(appErrors.ErrInvalidInput, "duration %q", s)
	}
	unit := time.Minute
	switch m[2] {
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	if int64(n) > int64(MaxMuteDuration/unit) {
		return 0, errors.Wrapf(appErrors.ErrInvalidInput, "duration %q exceeds %s", s, FormatDuration(MaxMuteDuration))
	}
	return time.Duration(n) * unit, nil
}

// FormatDuration prints whole days, hours or minutes.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	case d >= time.Hour && d%time.Hour == 0:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	}
	return strconv.Itoa(int(d.Round(time.Minute)/time.Minute)) + "m"
}
