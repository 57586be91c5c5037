// Package holidays owns the set of blocked calendar dates backed by a JSON
// file. Reads degrade to an empty set when the file is missing or malformed;
// writes replace the whole file atomically.
package holidays

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when removing a date that is not in the set.
var ErrNotFound = errors.New("holiday not found")

const dateLayout = "2006-01-02"

// Calendar is the holiday set store. Mutations serialize through the mutex;
// reads go straight to the file, which is only ever replaced via rename, so
// they never observe a partial write.
type Calendar struct {
	path   string
	logger *zerolog.Logger
	mu     sync.Mutex
}

func New(path string, logger *zerolog.Logger) *Calendar {
	return &Calendar{path: path, logger: logger}
}

// load reads the backing file into a set. Any read or parse failure degrades
// to the empty set: availability queries must keep working without the file.
// The degradation is logged so persistence bugs don't hide behind it.
func (c *Calendar) load() map[string]struct{} {
	set := make(map[string]struct{})

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) && c.logger != nil {
			c.logger.Warn().Err(err).Str("path", c.path).
				Msg("Holiday file unreadable, treating as empty set")
		}
		return set
	}

	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		if c.logger != nil {
			c.logger.Warn().Err(err).Str("path", c.path).
				Msg("Holiday file malformed, treating as empty set")
		}
		return set
	}

	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// save rewrites the whole set via write-to-temp-then-rename.
func (c *Calendar) save(set map[string]struct{}) error {
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	data, err := json.MarshalIndent(dates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal holidays: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create holidays directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".holidays-*.json")
	if err != nil {
		return fmt.Errorf("create temp holidays file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write holidays: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close holidays file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace holidays file: %w", err)
	}
	return nil
}

// IsBlocked reports whether the date is a holiday.
func (c *Calendar) IsBlocked(date time.Time) bool {
	set := c.load()
	_, blocked := set[date.Format(dateLayout)]
	return blocked
}

// List returns all holiday dates ascending.
func (c *Calendar) List() []string {
	set := c.load()
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Add puts a date in the set. Adding an existing date is a no-op.
func (c *Calendar) Add(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid holiday date %q, expected YYYY-MM-DD", date)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.load()
	if _, ok := set[date]; ok {
		return nil
	}
	set[date] = struct{}{}
	return c.save(set)
}

// Remove takes a date out of the set. Removing a non-member returns
// ErrNotFound and leaves the set unchanged.
func (c *Calendar) Remove(date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.load()
	if _, ok := set[date]; !ok {
		return ErrNotFound
	}
	delete(set, date)
	return c.save(set)
}

// BookableDaysInMonth returns every date of the month that can carry classes:
// all days ascending, minus Sundays, minus holidays.
func (c *Calendar) BookableDaysInMonth(year, month int) []string {
	set := c.load()

	days := daysIn(time.Month(month), year)
	available := make([]string, 0, days)
	for day := 1; day <= days; day++ {
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
		if d.Weekday() == time.Sunday {
			continue
		}
		if _, blocked := set[d.Format(dateLayout)]; blocked {
			continue
		}
		available = append(available, d.Format(dateLayout))
	}
	return available
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
