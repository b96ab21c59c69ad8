package metrics

import "time"

const (
	weekLabelLayout  = "2006-01-02"
	monthLabelLayout = "2006-01"
)

// weeklySeries buckets sessions into Monday-start weeks, zero-filling gaps
func weeklySeries(held []Session, loc *time.Location) []Bucket {
	return series(held, loc, startOfWeek, func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }, weekLabelLayout)
}

func monthlySeries(held []Session, loc *time.Location) []Bucket {
	return series(held, loc, startOfMonth, func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }, monthLabelLayout)
}

// series walks civil dates from the first to the last bucket; floor and next never see a zoned time
func series(held []Session, loc *time.Location, floor func(time.Time) time.Time, next func(time.Time) time.Time, layout string) []Bucket {
	first := floor(civilDate(held[0].Start))
	last := floor(civilDate(held[len(held)-1].Start))

	buckets := make([]Bucket, 0)
	index := make(map[time.Time]int)
	for start := first; !start.After(last); start = next(start) {
		index[start] = len(buckets)
		buckets = append(buckets, Bucket{Start: midnightIn(start, loc), Label: start.Format(layout)})
	}

	for _, s := range held {
		b := &buckets[index[floor(civilDate(s.Start))]]
		b.Sessions++
		b.Hours += s.Duration.Hours()
	}
	return buckets
}

func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(day time.Time) time.Time {
	y, m, _ := day.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
