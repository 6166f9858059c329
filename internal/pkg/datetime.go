package pkg

import "time"

// DisplayLayout renders timestamps as DD-MM-YYYY HH:mm:ss.
const DisplayLayout = "02-01-2006 15:04:05"

// FormatDisplayTime formats t in the process-local time zone using
// DisplayLayout. A zero time yields nil so it serializes as JSON null.
func FormatDisplayTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Local().Format(DisplayLayout)
	return &s
}
