package services

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

// maxScheduleDays bounds day-by-day counting for absurd date ranges.
const maxScheduleDays = 366 * 20

// WorkCalendar decides which days count as site working days for a country.
type WorkCalendar struct {
	defaultCountry string
	calendars      map[string]*cal.BusinessCalendar
}

func NewWorkCalendar(defaultCountry string) *WorkCalendar {
	if defaultCountry == "" {
		defaultCountry = "NONE"
	}
	c := &WorkCalendar{
		defaultCountry: strings.ToUpper(defaultCountry),
		calendars:      make(map[string]*cal.BusinessCalendar),
	}
	c.calendars["US"] = newBusinessCalendar("United States", us.Holidays...)
	c.calendars["GB"] = newBusinessCalendar("United Kingdom", gb.Holidays...)
	c.calendars["DE"] = newBusinessCalendar("Germany", de.Holidays...)
	c.calendars["FR"] = newBusinessCalendar("France", fr.Holidays...)
	c.calendars["JP"] = newBusinessCalendar("Japan", jp.Holidays...)
	c.calendars["AU"] = newBusinessCalendar("Australia", au.HolidaysNSW...)
	c.calendars["CA"] = newBusinessCalendar("Canada", ca.Holidays...)
	c.calendars["NZ"] = newBusinessCalendar("New Zealand", nz.Holidays...)
	c.calendars["NL"] = newBusinessCalendar("Netherlands", nl.Holidays...)
	return c
}

func newBusinessCalendar(name string, holidays ...*cal.Holiday) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.Name = name
	c.AddHoliday(holidays...)
	return c
}

func (c *WorkCalendar) resolve(countryCode string) string {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" {
		return c.defaultCountry
	}
	return code
}

// IsWorkday reports whether t is a working day in countryCode.
// Unknown codes and "NONE" fall back to Monday to Friday.
func (c *WorkCalendar) IsWorkday(t time.Time, countryCode string) bool {
	code := c.resolve(countryCode)
	if code == "CN" {
		return isWorkdayChina(t)
	}

	bc, ok := c.calendars[code]
	if !ok {
		return !cal.IsWeekend(t)
	}
	return bc.IsWorkday(t)
}

// China moves weekend days to compensate for holidays, which lunar-go tracks.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay())
	if holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

// WorkingDays counts working days in [from, to], both inclusive.
func (c *WorkCalendar) WorkingDays(from, to time.Time, countryCode string) int {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return 0
	}

	n := 0
	for d, i := from, 0; !d.After(to) && i < maxScheduleDays; d, i = d.AddDate(0, 0, 1), i+1 {
		if c.IsWorkday(d, countryCode) {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (c *WorkCalendar) SupportedCountries() []CountryInfo {
	return []CountryInfo{
		{Code: "NONE", Name: "Weekdays Only (Mon-Fri)"},
		{Code: "CN", Name: "China"},
		{Code: "US", Name: "United States"},
		{Code: "GB", Name: "United Kingdom"},
		{Code: "DE", Name: "Germany"},
		{Code: "FR", Name: "France"},
		{Code: "JP", Name: "Japan"},
		{Code: "AU", Name: "Australia"},
		{Code: "CA", Name: "Canada"},
		{Code: "NZ", Name: "New Zealand"},
		{Code: "NL", Name: "Netherlands"},
	}
}
