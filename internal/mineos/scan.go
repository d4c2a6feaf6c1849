package mineos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
)

// resultsHeaderExtra is the number of summary lines the solver prints after
// echoing the model card and before the first mode record.
const resultsHeaderExtra = 5

// ResultsHeaderLines returns the number of header lines in a results file
// produced against a model with the given layer count.
func ResultsHeaderLines(layerCount int) int {
	return layerCount + resultsHeaderExtra
}

// ScanResults parses a solver results file. The first headerLines lines are
// the echoed model card plus run summary and are skipped, along with any
// further content before the first mode record. The returned summary is nil
// when the file holds no records at all — the empty-run signal consumed by
// the extension loop.
func ScanResults(fs fsutil.FileSystem, path string, headerLines int) ([]ModeRecord, *RunSummary, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read results %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	var records []ModeRecord
	for i := headerLines; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		if !looksLikeRecord(fields) {
			if len(records) > 0 {
				// Sentinel or trailing content after the mode table.
				break
			}
			continue
		}

		rec, err := parseRecord(fields)
		if err != nil {
			return nil, nil, fmt.Errorf("results %s line %d: %v: %w", path, i+1, err, ErrParse)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, nil, nil
	}

	summary := &RunSummary{
		MaxL:      records[0].L,
		MinL:      records[0].L,
		MinPeriod: records[0].Period,
	}
	for _, r := range records[1:] {
		if r.L > summary.MaxL {
			summary.MaxL = r.L
		}
		if r.L < summary.MinL {
			summary.MinL = r.L
		}
		if r.Period < summary.MinPeriod {
			summary.MinPeriod = r.Period
		}
	}
	return records, summary, nil
}

// looksLikeRecord reports whether a line has the shape of a mode record:
// nine columns starting with an integer radial order and a mode-type tag.
func looksLikeRecord(fields []string) bool {
	if len(fields) != 9 {
		return false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return false
	}
	switch fields[1] {
	case "S", "T", "s", "t", "2", "3":
		return true
	}
	return false
}

func parseRecord(fields []string) (ModeRecord, error) {
	var rec ModeRecord

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return rec, fmt.Errorf("radial order %q", fields[0])
	}
	rec.N = n

	switch fields[1] {
	case "S", "s", "3":
		rec.Type = Spherical
	case "T", "t", "2":
		rec.Type = Toroidal
	default:
		return rec, fmt.Errorf("mode type %q", fields[1])
	}

	l, err := strconv.Atoi(fields[2])
	if err != nil {
		return rec, fmt.Errorf("angular order %q", fields[2])
	}
	rec.L = l

	dst := []*float64{&rec.WRad, &rec.WmHz, &rec.Period, &rec.GroupV, &rec.QMu, &rec.QKappa}
	for i, p := range dst {
		v, err := strconv.ParseFloat(fields[3+i], 64)
		if err != nil {
			return rec, fmt.Errorf("numeric field %d: %q", 3+i+1, fields[3+i])
		}
		*p = v
	}
	return rec, nil
}
