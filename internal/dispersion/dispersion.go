// Package dispersion extracts phase and group velocity curves from the
// merged dispersion artifact produced by the attenuation-correction stage.
package dispersion

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
)

// ErrMalformed reports an unparseable merged dispersion file.
var ErrMalformed = errors.New("dispersion: malformed dispersion file")

// Point is one mode of the merged dispersion curve.
type Point struct {
	Period float64 // s
	Phase  float64 // phase velocity, km/s
	Group  float64 // group velocity, km/s
}

// Velocities is the pair reported for one requested period. Both values are
// NaN when the period lies outside the curve's coverage.
type Velocities struct {
	Phase float64
	Group float64
}

// CoverageWarning is the non-fatal report that some requested periods fell
// outside the curve's period range and were answered with NaN.
type CoverageWarning struct {
	Uncovered []float64
}

func (w *CoverageWarning) Error() string {
	parts := make([]string, len(w.Uncovered))
	for i, p := range w.Uncovered {
		parts[i] = fmt.Sprintf("%.3g", p)
	}
	return fmt.Sprintf("dispersion: %d requested period(s) outside coverage: %s s",
		len(w.Uncovered), strings.Join(parts, ", "))
}

// Curve is a period-ordered dispersion curve.
type Curve struct {
	Points []Point
}

// ParseCurve reads a merged dispersion file. Columns: radial order, angular
// order, angular frequency (rad/s), frequency (mHz), period (s), phase
// velocity, group velocity, Qmu, Qkappa. Rows arrive in solver-run order
// and may repeat (n, l) pairs where consecutive runs overlapped; duplicates
// collapse to the first occurrence of each period.
func ParseCurve(fs fsutil.FileSystem, path string) (*Curve, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dispersion %s: %w", path, err)
	}

	seen := make(map[float64]bool)
	var points []Point
	for i, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 9 {
			return nil, fmt.Errorf("dispersion %s line %d: want 9 columns, got %d: %w", path, i+1, len(fields), ErrMalformed)
		}
		vals := make([]float64, 9)
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("dispersion %s line %d column %d: %q: %w", path, i+1, j+1, f, ErrMalformed)
			}
			vals[j] = v
		}
		period := vals[4]
		if seen[period] {
			continue
		}
		seen[period] = true
		points = append(points, Point{Period: period, Phase: vals[5], Group: vals[6]})
	}

	sort.Slice(points, func(a, b int) bool { return points[a].Period < points[b].Period })
	return &Curve{Points: points}, nil
}

// MinPeriod returns the shortest period the curve covers.
func (c *Curve) MinPeriod() float64 {
	if len(c.Points) == 0 {
		return math.NaN()
	}
	return c.Points[0].Period
}

// MaxPeriod returns the longest period the curve covers.
func (c *Curve) MaxPeriod() float64 {
	if len(c.Points) == 0 {
		return math.NaN()
	}
	return c.Points[len(c.Points)-1].Period
}

// Interpolate returns phase and group velocity at each requested period by
// linear interpolation along the curve. Periods outside the covered range
// get NaN rather than an extrapolated value; when that happens the returned
// CoverageWarning lists them, and the partial result is still usable.
func (c *Curve) Interpolate(periods []float64) (map[float64]Velocities, *CoverageWarning, error) {
	if len(c.Points) < 2 {
		return nil, nil, fmt.Errorf("curve has %d points, need at least 2: %w", len(c.Points), ErrMalformed)
	}

	xs := make([]float64, len(c.Points))
	phase := make([]float64, len(c.Points))
	group := make([]float64, len(c.Points))
	for i, p := range c.Points {
		xs[i] = p.Period
		phase[i] = p.Phase
		group[i] = p.Group
	}

	var phaseFn, groupFn interp.PiecewiseLinear
	if err := phaseFn.Fit(xs, phase); err != nil {
		return nil, nil, fmt.Errorf("fit phase curve: %v: %w", err, ErrMalformed)
	}
	if err := groupFn.Fit(xs, group); err != nil {
		return nil, nil, fmt.Errorf("fit group curve: %v: %w", err, ErrMalformed)
	}

	out := make(map[float64]Velocities, len(periods))
	var uncovered []float64
	for _, p := range periods {
		if p < c.MinPeriod() || p > c.MaxPeriod() {
			out[p] = Velocities{Phase: math.NaN(), Group: math.NaN()}
			uncovered = append(uncovered, p)
			continue
		}
		out[p] = Velocities{Phase: phaseFn.Predict(p), Group: groupFn.Predict(p)}
	}

	if len(uncovered) > 0 {
		return out, &CoverageWarning{Uncovered: uncovered}, nil
	}
	return out, nil, nil
}
