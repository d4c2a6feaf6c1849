package earthmodel

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Reference background model used to fill depths below a supplied profile.
// Derived from PREM with the ocean layer removed.
//
//go:embed prem_noocean.card
var premCard string

var (
	refOnce  sync.Once
	refModel *RadialModel
	refErr   error
)

// ReferenceModel returns the embedded background model. The card is parsed
// once per process.
func ReferenceModel() (*RadialModel, error) {
	refOnce.Do(func() {
		refModel, refErr = parseCardText("prem_noocean.card", premCard)
	})
	return refModel, refErr
}

// parseCardText parses card content that is already in memory.
func parseCardText(name, text string) (*RadialModel, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("card %s: too short: %w", name, ErrInvalidModel)
	}
	header := strings.Fields(lines[2])
	if len(header) != 3 {
		return nil, fmt.Errorf("card %s line 3: want 3 fields, got %d: %w", name, len(header), ErrInvalidModel)
	}
	count, err := strconv.Atoi(header[0])
	if err != nil || count < 1 {
		return nil, fmt.Errorf("card %s: bad layer count %q: %w", name, header[0], ErrInvalidModel)
	}
	if len(lines) < 3+count {
		return nil, fmt.Errorf("card %s: %d layer rows declared, %d present: %w", name, count, len(lines)-3, ErrInvalidModel)
	}
	layers := make([]Layer, 0, count)
	for i := 3; i < 3+count; i++ {
		fields := strings.Fields(lines[i])
		if len(fields) != 9 {
			return nil, fmt.Errorf("card %s line %d: want 9 fields: %w", name, i+1, ErrInvalidModel)
		}
		vals := make([]float64, 9)
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("card %s line %d: %q: %w", name, i+1, f, ErrInvalidModel)
			}
			vals[j] = v
		}
		layers = append(layers, Layer{
			Radius: vals[0], Rho: vals[1], Vpv: vals[2], Vsv: vals[3],
			QKappa: vals[4], QMu: vals[5], Vph: vals[6], Vsh: vals[7], Eta: vals[8],
		})
	}
	return &RadialModel{
		Name:            lines[0],
		Layers:          layers,
		Discontinuities: findDiscontinuities(layers),
	}, nil
}
