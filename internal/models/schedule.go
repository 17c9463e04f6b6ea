package models

// DaySchedule is one day's shift. Close before Open means the shift runs past midnight.
type DaySchedule struct {
	IsOpen bool   `json:"isOpen"`
	Open   string `json:"open"`
	Close  string `json:"close"`
}

// WeeklySchedule is keyed by lower-case English day name, monday through sunday.
type WeeklySchedule map[string]DaySchedule

type ScheduleConfig struct {
	Enabled  bool
	Schedule WeeklySchedule
}
