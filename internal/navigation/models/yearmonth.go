package models

import (
	"cmp"
	"time"
)

// YearMonth buckets dated content by calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Compare orders by year, then month.
func (ym YearMonth) Compare(other YearMonth) int {
	if c := cmp.Compare(ym.Year, other.Year); c != 0 {
		return c
	}
	return cmp.Compare(ym.Month, other.Month)
}

func (ym YearMonth) Less(other YearMonth) bool {
	return ym.Compare(other) < 0
}

// SameYear is the year-only equality used to group months under years.
func (ym YearMonth) SameYear(other YearMonth) bool {
	return ym.Year == other.Year
}
