package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storage-cycles/internal/model"
)

// ErrNoPoints is returned when no sample survives parsing.
var ErrNoPoints = errors.New("no valid load points")

// Point is one raw sample as posted by clients. The load may be given as
// load_kwh or load, as a number or a numeric string.
type Point struct {
	Timestamp string `json:"timestamp"`
	LoadKWh   any    `json:"load_kwh,omitempty"`
	Load      any    `json:"load,omitempty"`
}

// timeLayouts are tried in order for timestamps without a zone.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04",
}

// ParseTimestamp reads a timestamp as local wall-clock time in loc. Zoned
// timestamps are converted into loc first.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// PointsSeries turns raw points into a 15-minute mean series. Points with an
// unparsable timestamp or load are dropped; for duplicate timestamps the
// first one wins.
func PointsSeries(points []Point, loc *time.Location) (model.LoadSeries, error) {
	seen := map[int64]bool{}
	samples := make([]model.LoadPoint, 0, len(points))
	for _, p := range points {
		ts, err := ParseTimestamp(p.Timestamp, loc)
		if err != nil {
			continue
		}
		raw := p.LoadKWh
		if raw == nil {
			raw = p.Load
		}
		v, ok := numeric(raw)
		if !ok {
			continue
		}
		k := ts.UnixNano()
		if seen[k] {
			continue
		}
		seen[k] = true
		samples = append(samples, model.LoadPoint{Timestamp: ts, LoadKW: v})
	}
	series := Resample15(samples)
	if len(series) == 0 {
		return nil, ErrNoPoints
	}
	return series, nil
}

// LoadPointsJSON reads either a bare point array or an object with a
// "points" array.
func LoadPointsJSON(path string, loc *time.Location) (model.LoadSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var points []Point
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(raw, &points)
	} else {
		var wrapped struct {
			Points []Point `json:"points"`
		}
		err = json.Unmarshal(raw, &wrapped)
		points = wrapped.Points
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return PointsSeries(points, loc)
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
