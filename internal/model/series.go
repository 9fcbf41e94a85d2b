package model

import "time"

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// LoadPoint is one 15-minute load sample. Timestamps are local wall-clock
// times; the day boundary of the strategy table is the local midnight.
type LoadPoint struct {
	Timestamp time.Time `json:"timestamp"`
	LoadKW    float64   `json:"load_kw"`
}

func (p LoadPoint) DateKey() string  { return p.Timestamp.Format(DateLayout) }
func (p LoadPoint) MonthKey() string { return p.Timestamp.Format(MonthLayout) }

// LoadSeries is ordered by strictly increasing, 15-minute aligned timestamps.
// Missing slots are absent, never zero-filled.
type LoadSeries []LoadPoint

// Span returns the first and last timestamps. ok is false for an empty series.
func (s LoadSeries) Span() (start, end time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s[0].Timestamp, s[len(s)-1].Timestamp, true
}

// Days lists every calendar date from the first to the last point, inclusive,
// including dates with no samples.
func (s LoadSeries) Days() []time.Time {
	start, end, ok := s.Span()
	if !ok {
		return nil
	}
	cur := DateOf(start)
	last := DateOf(end)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

// ByDate groups points by date key, preserving order.
func (s LoadSeries) ByDate() map[string]LoadSeries {
	out := map[string]LoadSeries{}
	for _, p := range s {
		k := p.DateKey()
		out[k] = append(out[k], p)
	}
	return out
}

// OnDate returns the points falling on the given date key.
func (s LoadSeries) OnDate(date string) LoadSeries {
	var out LoadSeries
	for _, p := range s {
		if p.DateKey() == date {
			out = append(out, p)
		}
	}
	return out
}

// DateOf truncates t to its local midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
