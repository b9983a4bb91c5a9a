package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month. It is comparable and usable as a map key.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates t to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// NewMonth builds a month from year and 1-12 index.
func NewMonth(year int, month int) Month {
	return Month{Year: year, Month: time.Month(month)}
}

// ParseMonth accepts "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return MonthOf(t), nil
}

// Start is the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) After(o Month) bool { return o.Before(m) }

// Compare returns -1, 0 or +1 and fits slices.SortFunc.
func (m Month) Compare(o Month) int {
	switch {
	case m.Before(o):
		return -1
	case o.Before(m):
		return 1
	default:
		return 0
	}
}

// AddMonths shifts the month by n, which may be negative.
func (m Month) AddMonths(n int) Month {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

// String renders "2006-01", the format used in JSON and storage.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label renders "January 2006".
func (m Month) Label() string { return m.Start().Format("January 2006") }

// Short renders "Jan 2006".
func (m Month) Short() string { return m.Start().Format("Jan 2006") }

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
