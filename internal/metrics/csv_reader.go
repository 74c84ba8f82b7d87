package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ReadMetricsCSV reads a metrics CSV file written by Writer and returns the
// parsed metrics along with the first and last timestamps found in the data.
func ReadMetricsCSV(path string) ([]Metric, time.Time, time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("open metrics CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}

	requiredCols := []string{"timestamp", "flow", "bytes", "success"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("CSV missing required column: %s", col)
		}
	}

	field := func(record []string, col string) (string, bool) {
		idx, ok := colIndex[col]
		if !ok || idx >= len(record) || record[idx] == "" {
			return "", false
		}
		return record[idx], true
	}

	var metrics []Metric
	var firstTime, lastTime time.Time
	rowCount := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("read CSV row %d: %w", rowCount+2, err)
		}

		m := Metric{}
		if v, ok := field(record, "timestamp"); ok {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				m.Timestamp = t
				if rowCount == 0 {
					firstTime = t
				}
				lastTime = t
			}
		}
		m.Flow, _ = field(record, "flow")
		if v, ok := field(record, "worker"); ok {
			m.Worker, _ = strconv.Atoi(v)
		}
		if v, ok := field(record, "index"); ok {
			m.Index, _ = strconv.ParseUint(v, 10, 64)
		}
		if v, ok := field(record, "bytes"); ok {
			m.Bytes, _ = strconv.Atoi(v)
		}
		if v, ok := field(record, "success"); ok {
			m.Success = v == "true"
		}
		if v, ok := field(record, "render_us"); ok {
			m.RenderUs, _ = strconv.ParseFloat(v, 64)
		}
		m.Error, _ = field(record, "error")

		metrics = append(metrics, m)
		rowCount++
	}

	if rowCount == 0 {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("no data rows in CSV file")
	}

	return metrics, firstTime, lastTime, nil
}
