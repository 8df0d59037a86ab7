package services

import "time"

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// endOfDay is built from the wall clock so DST days still end at 23:59:59.999999.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999000, loc)
}

// DayBounds spans day from 00:00:00.000000 to 23:59:59.999999 in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	return startOfDay(day, loc), endOfDay(day, loc)
}

// RangeBounds spans the first day's start to the last day's end, inclusive.
func RangeBounds(first, last time.Time, loc *time.Location) (time.Time, time.Time, error) {
	start, end := startOfDay(first, loc), endOfDay(last, loc)
	if end.Before(start) {
		return time.Time{}, time.Time{}, validationErr("end", "end date is before start date")
	}
	return start, end, nil
}

// MonthBounds spans the whole calendar month containing day.
func MonthBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	day = day.In(loc)
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
	// day 0 of the next month is the last day of this one
	last := time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, loc)
	return start, endOfDay(last, loc)
}
