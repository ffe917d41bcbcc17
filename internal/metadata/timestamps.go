package metadata

import "time"

// TimestampLayout is the EXIF date-time format, "YYYY:MM:DD HH:MM:SS".
const TimestampLayout = "2006:01:02 15:04:05"

// Timestamp is one EXIF date-time field. Time is set only when Raw matches
// TimestampLayout. EXIF stores wall-clock time without a zone, so Time is
// expressed in UTC as a placeholder location.
type Timestamp struct {
	Raw  string     `json:"raw"`
	Time *time.Time `json:"time,omitempty"`
}

// Timestamps holds the three EXIF date-time fields. Absent fields are nil.
type Timestamps struct {
	DateTime          *Timestamp `json:"DateTime"`
	DateTimeOriginal  *Timestamp `json:"DateTimeOriginal"`
	DateTimeDigitized *Timestamp `json:"DateTimeDigitized"`
}

// GetTimestamps reads DateTime, DateTimeOriginal and DateTimeDigitized.
func GetTimestamps(path string) (Timestamps, error) {
	tags, err := ReadAll(path)
	if err != nil {
		return Timestamps{}, err
	}
	return Timestamps{
		DateTime:          parseTimestamp(tags["DateTime"]),
		DateTimeOriginal:  parseTimestamp(tags["DateTimeOriginal"]),
		DateTimeDigitized: parseTimestamp(tags["DateTimeDigitized"]),
	}, nil
}

// ParseTimestamp parses raw with TimestampLayout, keeping raw when it does
// not match.
func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	if t, err := time.ParseInLocation(TimestampLayout, raw, time.UTC); err == nil {
		ts.Time = &t
	}
	return ts
}

func parseTimestamp(v any) *Timestamp {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	ts := ParseTimestamp(s)
	return &ts
}
