package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SolverConfig holds the tunable parameters for the normal-mode solver
// driver. All fields are optional pointers so a JSON file can override any
// subset; the Get* methods supply defaults for fields left unset. The same
// schema is serialized into the run store for reproducibility.
type SolverConfig struct {
	// Angular-order search range for the first invocation.
	LMin *int `json:"l_min,omitempty"`
	LMax *int `json:"l_max,omitempty"`

	// Frequency floor in mHz. The ceiling is derived from the shortest
	// requested period, not configured.
	FMinMHz *float64 `json:"f_min_mhz,omitempty"`

	// Run-extension loop params
	MaxRuns            *int `json:"max_runs,omitempty"`
	LIncrementStandard *int `json:"l_increment_standard,omitempty"`
	LIncrementRetry    *int `json:"l_increment_retry,omitempty"`

	// External tool params
	SolverTimeout  *string `json:"solver_timeout,omitempty"` // duration string like "100s"
	SolverBinary   *string `json:"solver_binary,omitempty"`
	RepairBinary   *string `json:"repair_binary,omitempty"`
	QCorrectBinary *string `json:"qcorrect_binary,omitempty"`

	// Solver tolerance constants, written verbatim into each job file.
	Eps   *float64 `json:"eps,omitempty"`
	WGrav *float64 `json:"wgrav,omitempty"`
}

// EmptySolverConfig returns a SolverConfig with all fields set to nil.
// Use LoadSolverConfig to load actual values from a file.
func EmptySolverConfig() *SolverConfig {
	return &SolverConfig{}
}

// LoadSolverConfig loads a SolverConfig from a JSON file.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadSolverConfig(path string) (*SolverConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySolverConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SolverConfig) Validate() error {
	if c.LMin != nil && *c.LMin < 0 {
		return fmt.Errorf("l_min must be non-negative, got %d", *c.LMin)
	}
	if c.LMax != nil && c.LMin != nil && *c.LMax < *c.LMin {
		return fmt.Errorf("l_max (%d) must not be below l_min (%d)", *c.LMax, *c.LMin)
	}
	if c.FMinMHz != nil && *c.FMinMHz < 0 {
		return fmt.Errorf("f_min_mhz must be non-negative, got %f", *c.FMinMHz)
	}
	if c.MaxRuns != nil && *c.MaxRuns < 1 {
		return fmt.Errorf("max_runs must be at least 1, got %d", *c.MaxRuns)
	}
	if c.LIncrementStandard != nil && *c.LIncrementStandard < 1 {
		return fmt.Errorf("l_increment_standard must be at least 1, got %d", *c.LIncrementStandard)
	}
	if c.LIncrementRetry != nil && *c.LIncrementRetry < 1 {
		return fmt.Errorf("l_increment_retry must be at least 1, got %d", *c.LIncrementRetry)
	}
	if c.SolverTimeout != nil && *c.SolverTimeout != "" {
		if _, err := time.ParseDuration(*c.SolverTimeout); err != nil {
			return fmt.Errorf("invalid solver_timeout '%s': %w", *c.SolverTimeout, err)
		}
	}
	return nil
}

// GetLMin returns the starting angular order or the default.
func (c *SolverConfig) GetLMin() int {
	if c.LMin == nil {
		return 0
	}
	return *c.LMin
}

// GetLMax returns the angular-order ceiling or the default.
func (c *SolverConfig) GetLMax() int {
	if c.LMax == nil {
		return 3500
	}
	return *c.LMax
}

// GetFMinMHz returns the frequency floor in mHz or the default.
func (c *SolverConfig) GetFMinMHz() float64 {
	if c.FMinMHz == nil {
		return 0.05
	}
	return *c.FMinMHz
}

// GetMaxRuns returns the run-count ceiling or the default.
func (c *SolverConfig) GetMaxRuns() int {
	if c.MaxRuns == nil {
		return 500
	}
	return *c.MaxRuns
}

// GetLIncrementStandard returns the angular-order step applied after a
// productive solver run.
func (c *SolverConfig) GetLIncrementStandard() int {
	if c.LIncrementStandard == nil {
		return 2
	}
	return *c.LIncrementStandard
}

// GetLIncrementRetry returns the angular-order step applied after a run
// that produced no modes.
func (c *SolverConfig) GetLIncrementRetry() int {
	if c.LIncrementRetry == nil {
		return 5
	}
	return *c.LIncrementRetry
}

// GetSolverTimeout parses and returns the SolverTimeout as a time.Duration.
func (c *SolverConfig) GetSolverTimeout() time.Duration {
	if c.SolverTimeout == nil || *c.SolverTimeout == "" {
		return 100 * time.Second
	}
	d, err := time.ParseDuration(*c.SolverTimeout)
	if err != nil {
		return 100 * time.Second
	}
	return d
}

// GetSolverBinary returns the normal-mode solver executable name.
func (c *SolverConfig) GetSolverBinary() string {
	if c.SolverBinary == nil || *c.SolverBinary == "" {
		return "mineos_nohang"
	}
	return *c.SolverBinary
}

// GetRepairBinary returns the eigenfunction repair executable name.
func (c *SolverConfig) GetRepairBinary() string {
	if c.RepairBinary == nil || *c.RepairBinary == "" {
		return "eig_recover"
	}
	return *c.RepairBinary
}

// GetQCorrectBinary returns the attenuation-correction executable name.
func (c *SolverConfig) GetQCorrectBinary() string {
	if c.QCorrectBinary == nil || *c.QCorrectBinary == "" {
		return "mineos_qcorrectphv"
	}
	return *c.QCorrectBinary
}

// GetEps returns the solver integration tolerance.
func (c *SolverConfig) GetEps() float64 {
	if c.Eps == nil {
		return 1e-10
	}
	return *c.Eps
}

// GetWGrav returns the frequency (mHz) above which gravitational terms
// are dropped by the solver.
func (c *SolverConfig) GetWGrav() float64 {
	if c.WGrav == nil {
		return 10
	}
	return *c.WGrav
}
