package models

// LogEntry is one record of the audit log. Entries are never modified after append.
type LogEntry struct {
	Message string      `json:"message"`
	Time    string      `json:"time"` // local time, "15:04:05 2/1/2006"
	Data    DeviceState `json:"data"`
}
