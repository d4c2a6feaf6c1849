package earthmodel

import (
	"fmt"
	"strings"

	"github.com/seismic-data/dispersion.report/internal/fsutil"
)

// WriteCard serializes the model in the solver's layered-card format:
// a name line, an "ifanis tref ifdeck" line (anisotropy always on, no
// dispersion correction at this stage, deck model), a "layers nic noc"
// line, then one fixed-width row per layer ordered by increasing radius.
func WriteCard(fs fsutil.FileSystem, path string, m *RadialModel) error {
	if err := validateRadii(m.Layers); err != nil {
		return fmt.Errorf("write card %s: %w", path, err)
	}

	nic, noc := m.coreIndices()

	var b strings.Builder
	b.WriteString(m.Name + "\n")
	b.WriteString("  1   -1   1\n")
	fmt.Fprintf(&b, "  %d   %d   %d\n", len(m.Layers), nic, noc)
	for _, l := range m.Layers {
		fmt.Fprintf(&b, "%7.0f.%9.2f%9.2f%9.2f%9.1f%9.1f%9.2f%9.2f%9.5f\n",
			l.Radius, l.Rho, l.Vpv, l.Vsv, l.QKappa, l.QMu, l.Vph, l.Vsh, l.Eta)
	}

	if err := fs.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write card %s: %w", path, err)
	}
	return nil
}

// ParseCard reads a layered model card back into a RadialModel. The driver
// uses the parsed layer count to know how many header lines the solver's
// results files will carry.
func ParseCard(fs fsutil.FileSystem, path string) (*RadialModel, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card %s: %w", path, err)
	}

	m, err := parseCardText(path, string(data))
	if err != nil {
		return nil, err
	}
	if err := validateRadii(m.Layers); err != nil {
		return nil, fmt.Errorf("card %s: radii not non-decreasing: %w", path, err)
	}
	return m, nil
}
