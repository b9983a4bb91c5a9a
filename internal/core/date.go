package core

import (
	"fmt"
	"strings"
	"time"
)

// Day-first layouts come before ISO ones: "03/04/2024" is the 3rd of April.
var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02 Jan 2006",
	"2 January 2006",
}

// ParseDayFirst parses the date formats found in the ledger sheets.
func ParseDayFirst(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
