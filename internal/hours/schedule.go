package hours

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

var ErrInvalidSchedule = errors.New("invalid operating schedule")

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, false
	}
	return h*60 + m, true
}

// ParseCloseClock is ParseClock that also accepts "24:00" as end of day (1440).
func ParseCloseClock(s string) (int, bool) {
	if strings.TrimSpace(s) == "24:00" {
		return 24 * 60, true
	}
	return ParseClock(s)
}

// ParseSchedule decodes the persisted schedule blob. Blank input and "{}" yield an empty schedule.
func ParseSchedule(blob string) (models.WeeklySchedule, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return models.WeeklySchedule{}, nil
	}

	var raw map[string]models.DaySchedule
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	out := make(models.WeeklySchedule, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out, nil
}

// ConfigFromSettings builds the evaluator input. A blob that fails to parse
// disables the schedule so the shop stays open.
func ConfigFromSettings(enabled bool, blob string) models.ScheduleConfig {
	if !enabled {
		return models.ScheduleConfig{}
	}
	schedule, err := ParseSchedule(blob)
	if err != nil {
		return models.ScheduleConfig{}
	}
	return models.ScheduleConfig{Enabled: true, Schedule: schedule}
}

// Validate is used on admin writes; reads never reject a schedule.
func Validate(schedule models.WeeklySchedule) error {
	known := make(map[string]struct{}, len(dayKeys))
	for _, k := range dayKeys {
		known[k] = struct{}{}
	}

	for key, day := range schedule {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, key)
		}
		if !day.IsOpen {
			continue
		}
		openMin, ok := ParseClock(day.Open)
		if !ok {
			return fmt.Errorf("%w: %s open time %q", ErrInvalidSchedule, key, day.Open)
		}
		closeMin, ok := ParseCloseClock(day.Close)
		if !ok {
			return fmt.Errorf("%w: %s close time %q", ErrInvalidSchedule, key, day.Close)
		}
		if openMin == closeMin {
			return fmt.Errorf("%w: %s opens and closes at %s", ErrInvalidSchedule, key, day.Open)
		}
	}
	return nil
}
