package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"storage-cycles/internal/model"
)

// Column aliases accepted by ReadLoadCSV, compared after trimming and
// lower-casing. The Chinese headers are what metering exports use.
var (
	timestampAliases = []string{"timestamp", "datetime", "时间戳", "采集时间", "记录时间", "日期时间"}
	dateAliases      = []string{"date", "日期", "数据日期", "记录日期"}
	clockAliases     = []string{"time", "时间", "时刻"}
	loadAliases      = []string{"load_kw", "load", "load_kwh", "负荷", "负荷kw", "负荷(kw)", "负荷（kw）", "功率(kw)", "功率"}
)

// ReadLoadCSV parses a load export into a 15-minute mean series. The
// timestamp is either one column or a date column plus a time column.
func ReadLoadCSV(r io.Reader, loc *time.Location) (model.LoadSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	tsCol := locate(cols, timestampAliases)
	dateCol, clockCol := -1, -1
	if tsCol < 0 {
		dateCol, clockCol = locate(cols, dateAliases), locate(cols, clockAliases)
		if dateCol < 0 || clockCol < 0 {
			return nil, errors.New("no timestamp column (timestamp, or date + time)")
		}
	}
	loadCol := locate(cols, loadAliases)
	if loadCol < 0 {
		return nil, errors.New("no load column")
	}

	var points []Point
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		p := Point{Load: field(rec, loadCol)}
		if tsCol >= 0 {
			p.Timestamp = field(rec, tsCol)
		} else {
			p.Timestamp = field(rec, dateCol) + " " + field(rec, clockCol)
		}
		points = append(points, p)
	}
	return PointsSeries(points, loc)
}

func LoadCSVFile(path string, loc *time.Location) (model.LoadSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLoadCSV(f, loc)
}

func locate(cols, aliases []string) int {
	for i, c := range cols {
		for _, a := range aliases {
			if c == a {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
