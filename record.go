package remotelog

import "time"

// Record is one observed log event. Records are passed by value and are not
// modified after creation.
type Record struct {
	// Time is when the event was logged.
	Time time.Time

	// Level is the event severity.
	Level Level

	// Category is the logger category that produced the record. Empty means DefaultCategory.
	Category string

	// Message is the already formatted message text.
	Message string

	// Cause is an optional error associated with the event.
	Cause error
}

// NewRecord creates a Record stamped with the current time.
func NewRecord(level Level, category, message string, cause error) Record {
	return Record{
		Time:     time.Now(),
		Level:    level,
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// Name returns the category the record should be logged under.
func (r Record) Name() string {
	if r.Category == "" {
		return DefaultCategory
	}
	return r.Category
}
