// Package hours decides whether the shop accepts orders at a given instant.
package hours

import (
	"fmt"
	"time"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
)

const (
	MessageOpen        = "Open"
	MessageClosedToday = "Closed today"
)

// Decision is the evaluator's answer for one instant.
type Decision struct {
	IsOpen  bool   `json:"isOpen"`
	Message string `json:"message"`
}

// indexed by time.Weekday
var dayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DayKey returns the schedule key for a weekday.
func DayKey(d time.Weekday) string {
	return dayKeys[d]
}

// Evaluate reports whether the shop is open at now. It is pure: the caller
// supplies the configuration and converts now into the shop's location.
//
// An overnight shift on a day also opens the early hours of that same day,
// independent of whether the previous day was open. The carry-over check
// for the previous day's overnight shift and today's overnight branch
// therefore overlap; both are kept as-is.
func Evaluate(cfg models.ScheduleConfig, now time.Time) Decision {
	if !cfg.Enabled || len(cfg.Schedule) == 0 {
		return Decision{IsOpen: true, Message: MessageOpen}
	}

	weekday := now.Weekday()
	todayKey := dayKeys[weekday]
	yesterdayKey := dayKeys[(weekday+6)%7]
	current := now.Hour()*60 + now.Minute()

	if y, ok := cfg.Schedule[yesterdayKey]; ok && y.IsOpen {
		openMin, okOpen := ParseClock(y.Open)
		closeMin, okClose := ParseCloseClock(y.Close)
		if okOpen && okClose && closeMin < openMin && current < closeMin {
			return Decision{IsOpen: true, Message: MessageOpen}
		}
	}

	today, ok := cfg.Schedule[todayKey]
	if !ok || !today.IsOpen {
		return Decision{IsOpen: false, Message: MessageClosedToday}
	}

	openMin, okOpen := ParseClock(today.Open)
	closeMin, okClose := ParseCloseClock(today.Close)
	if okOpen && okClose {
		if closeMin < openMin {
			if current >= openMin || current < closeMin {
				return Decision{IsOpen: true, Message: MessageOpen}
			}
		} else if openMin <= current && current < closeMin {
			return Decision{IsOpen: true, Message: MessageOpen}
		}
	}

	return Decision{IsOpen: false, Message: fmt.Sprintf("Closed. Opens at %s", today.Open)}
}
