package mineos

import (
	"fmt"
	"strings"
)

// ModeType selects the oscillation family the solver searches.
type ModeType int

const (
	// Spherical modes couple P and SV motion (Rayleigh-wave branch).
	Spherical ModeType = iota
	// Toroidal modes carry SH motion (Love-wave branch).
	Toroidal
)

// Code returns the solver's numeric code for the mode type.
func (t ModeType) Code() int {
	if t == Toroidal {
		return 2
	}
	return 3
}

func (t ModeType) String() string {
	if t == Toroidal {
		return "toroidal"
	}
	return "spherical"
}

// ParseModeType converts a mode-type name to a ModeType.
func ParseModeType(s string) (ModeType, error) {
	switch strings.ToLower(s) {
	case "spherical", "rayleigh", "s":
		return Spherical, nil
	case "toroidal", "love", "t":
		return Toroidal, nil
	}
	return Spherical, fmt.Errorf("unknown mode type %q", s)
}

// ModeJob describes one solver invocation: the mode family, the angular
// order range to search, and the frequency window in mHz. The angular-order
// range is the only field that changes between successive invocations of a
// run.
type ModeJob struct {
	Type  ModeType
	LMin  int
	LMax  int
	FMin  float64 // mHz
	FMax  float64 // mHz
	Eps   float64
	WGrav float64
}

// Encode renders the job description in the solver's fixed format: a
// tolerance-constants line, the mode-type code, the search window line, and
// a zero trailer.
func (j ModeJob) Encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.6g %.6g %.6g %.6g\n", j.Eps, j.Eps, j.Eps, j.WGrav)
	fmt.Fprintf(&b, "%d\n", j.Type.Code())
	fmt.Fprintf(&b, "%d %d %.6g %.6g 1\n", j.LMin, j.LMax, j.FMin, j.FMax)
	b.WriteString("0\n")
	return b.String()
}
