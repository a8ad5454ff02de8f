package game

import "fmt"

const (
	DaysPerMonth  = 30
	MonthsPerYear = 12

	// EpochYear anchors the absolute month index.
	EpochYear = 2024

	// BaseDayDurationMs is the real-time length of one game day at normal speed.
	BaseDayDurationMs = 2000
)

// TimeSpeed is a playback multiplier. Zero means paused.
type TimeSpeed float64

const (
	SpeedPaused    TimeSpeed = 0
	SpeedSlow      TimeSpeed = 0.5
	SpeedNormal    TimeSpeed = 1
	SpeedFast      TimeSpeed = 2
	SpeedVeryFast  TimeSpeed = 4
	SpeedUltraFast TimeSpeed = 8
)

// Valid reports whether s is one of the supported speeds.
func (s TimeSpeed) Valid() bool {
	switch s {
	case SpeedPaused, SpeedSlow, SpeedNormal, SpeedFast, SpeedVeryFast, SpeedUltraFast:
		return true
	}
	return false
}

func (s TimeSpeed) String() string {
	switch s {
	case SpeedPaused:
		return "paused"
	case SpeedSlow:
		return "slow"
	case SpeedNormal:
		return "normal"
	case SpeedFast:
		return "fast"
	case SpeedVeryFast:
		return "very-fast"
	case SpeedUltraFast:
		return "ultra-fast"
	}
	return fmt.Sprintf("%gx", float64(s))
}

// ParseSpeed accepts either a speed name or a multiplier such as "2" or "0.5".
func ParseSpeed(s string) (TimeSpeed, error) {
	for _, sp := range []TimeSpeed{SpeedPaused, SpeedSlow, SpeedNormal, SpeedFast, SpeedVeryFast, SpeedUltraFast} {
		if s == sp.String() {
			return sp, nil
		}
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil && TimeSpeed(f).Valid() {
		return TimeSpeed(f), nil
	}
	return 0, fmt.Errorf("unknown time speed %q", s)
}

// DayDuration returns the tick interval in milliseconds for a running speed.
func (s TimeSpeed) DayDuration(baseMs int) int {
	if s <= 0 {
		return baseMs
	}
	return int(float64(baseMs) / float64(s))
}

// GameTime is the simulated calendar: 30-day months, 12-month years.
type GameTime struct {
	Day       int `json:"day"`
	Month     int `json:"month"`
	Year      int `json:"year"`
	TotalDays int `json:"totalDays"`
}

// StartTime is 1 January 2024, day one of the game.
func StartTime() GameTime {
	return GameTime{Day: 1, Month: 1, Year: EpochYear, TotalDays: 1}
}

// AbsoluteMonth is month + (year - 2024) * 12.
func (t GameTime) AbsoluteMonth() int {
	return t.Month + (t.Year-EpochYear)*MonthsPerYear
}

// Advance moves the calendar one day forward and reports which boundaries were crossed.
func (t *GameTime) Advance() (monthRolled, yearRolled bool) {
	t.Day++
	t.TotalDays++
	if t.Day > DaysPerMonth {
		t.Day = 1
		t.Month++
		monthRolled = true
		if t.Month > MonthsPerYear {
			t.Month = 1
			t.Year++
			yearRolled = true
		}
	}
	return monthRolled, yearRolled
}

// DaysUntilNextIncome counts the days left until the next settlement, today included.
func (t GameTime) DaysUntilNextIncome() int {
	return DaysPerMonth - t.Day + 1
}

var monthNames = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// MonthName returns the German month name for 1-12.
func MonthName(month int) string {
	if month < 1 || month > MonthsPerYear {
		return ""
	}
	return monthNames[month-1]
}

// Format renders the date as "D. Monatsname YYYY".
func (t GameTime) Format() string {
	return fmt.Sprintf("%d. %s %d", t.Day, MonthName(t.Month), t.Year)
}

// TimeSettings control how fast the clock runs.
type TimeSettings struct {
	Speed       TimeSpeed `json:"speed"`
	IsPaused    bool      `json:"isPaused"`
	DayDuration int       `json:"dayDuration"` // ms per game day
}

// DefaultTimeSettings is normal speed, running.
func DefaultTimeSettings() TimeSettings {
	return TimeSettings{Speed: SpeedNormal, DayDuration: BaseDayDurationMs}
}
