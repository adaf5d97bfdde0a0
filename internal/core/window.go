package core

import "fmt"

// Window is an inclusive range of calendar dates.
type Window struct {
	Start Date
	End   Date
}

// TrailingWindow returns [today - months, today]. Months are calendar months;
// when the start month is shorter the day is clamped to its last day.
func TrailingWindow(today Date, months int) Window {
	return Window{Start: today.AddMonths(-months), End: today}
}

// Contains reports whether d falls within the window, both ends included.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start.Time) && !d.After(w.End.Time)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start, w.End)
}
