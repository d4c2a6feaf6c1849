// Command dispersion computes surface-wave phase and group velocity
// dispersion curves for a velocity profile or an existing layered-model
// card by driving the external normal-mode solver chain.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/seismic-data/dispersion.report/internal/config"
	"github.com/seismic-data/dispersion.report/internal/earthmodel"
	"github.com/seismic-data/dispersion.report/internal/mineos"
	"github.com/seismic-data/dispersion.report/internal/runstore"
)

// profileFile is the on-disk shape of a velocity profile.
type profileFile struct {
	Name    string             `json:"name"`
	Profile earthmodel.Profile `json:"profile"`
}

// parseCSVFloatSlice parses a comma-separated list of floats
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	var profilePath string
	var cardPath string
	var periodsStr string
	var modeStr string
	var workDir string
	var runID string
	var configPath string
	var dbPath string
	var qmodPath string
	var solverBin string
	var timeoutStr string

	flag.StringVar(&profilePath, "profile", "", "path to velocity profile JSON")
	flag.StringVar(&cardPath, "card", "", "path to an existing layered-model card, used as-is")
	flag.StringVar(&periodsStr, "periods", "", "comma-separated periods in seconds")
	flag.StringVar(&modeStr, "mode", "spherical", "mode type: spherical or toroidal")
	flag.StringVar(&workDir, "workdir", ".", "directory for solver artifacts")
	flag.StringVar(&runID, "id", "", "run identifier (random when empty)")
	flag.StringVar(&configPath, "config", "", "path to solver config JSON")
	flag.StringVar(&dbPath, "db", "", "optional sqlite db for run bookkeeping")
	flag.StringVar(&qmodPath, "qmod", "", "optional attenuation model, default embedded")
	flag.StringVar(&solverBin, "solver", "", "solver binary, overrides config")
	flag.StringVar(&timeoutStr, "timeout", "", "per-invocation timeout, e.g. 100s, overrides config")
	flag.Parse()

	if (profilePath == "") == (cardPath == "") {
		log.Fatalf("exactly one of -profile or -card must be provided")
	}
	periods, err := parseCSVFloatSlice(periodsStr)
	if err != nil {
		log.Fatalf("invalid periods: %v", err)
	}
	if len(periods) == 0 {
		log.Fatalf("periods must be provided")
	}
	mode, err := mineos.ParseModeType(modeStr)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}

	cfg := config.EmptySolverConfig()
	if configPath != "" {
		cfg, err = config.LoadSolverConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if solverBin != "" {
		cfg.SolverBinary = &solverBin
	}
	if timeoutStr != "" {
		if _, err := time.ParseDuration(timeoutStr); err != nil {
			log.Fatalf("invalid timeout: %v", err)
		}
		cfg.SolverTimeout = &timeoutStr
	}

	var model *earthmodel.RadialModel
	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			log.Fatalf("read profile: %v", err)
		}
		var pf profileFile
		if err := json.Unmarshal(data, &pf); err != nil {
			log.Fatalf("parse profile: %v", err)
		}
		if pf.Name == "" {
			pf.Name = "profile"
		}
		model, err = earthmodel.Build(pf.Name, pf.Profile)
		if err != nil {
			log.Fatalf("build model: %v", err)
		}
	}

	driver := mineos.NewDriver(cfg)
	driver.QModelPath = qmodPath
	if dbPath != "" {
		db, err := runstore.Open(dbPath)
		if err != nil {
			log.Fatalf("open run store: %v", err)
		}
		defer db.Close()
		driver.Store = runstore.NewRunStore(db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := mineos.NewRunContext(workDir, runID)
	log.Printf("run %s: %s, %d periods, workdir %s", rc.ID, mode, len(periods), workDir)

	var res *mineos.Result
	if model != nil {
		res, err = driver.ComputeDispersion(ctx, rc, model, mode, periods)
	} else {
		res, err = driver.ComputeDispersionFromCard(ctx, rc, cardPath, mode, periods)
	}
	if err != nil {
		log.Fatalf("run %s: %v", rc.ID, err)
	}

	if res.Coverage != nil {
		log.Printf("run %s: %v", rc.ID, res.Coverage)
	}
	log.Printf("run %s: %d solver invocation(s), %d attempt(s)", rc.ID, len(res.Runs.Records), res.Runs.Attempts)

	sorted := append([]float64(nil), periods...)
	sort.Float64s(sorted)
	fmt.Printf("%10s %12s %12s\n", "period_s", "phase_km_s", "group_km_s")
	for _, p := range sorted {
		v := res.Velocities[p]
		if math.IsNaN(v.Phase) {
			fmt.Printf("%10.3f %12s %12s\n", p, "-", "-")
			continue
		}
		fmt.Printf("%10.3f %12.5f %12.5f\n", p, v.Phase, v.Group)
	}
}
