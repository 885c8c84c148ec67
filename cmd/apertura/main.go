// Command apertura runs optical bench scenarios: Fourier-optics simulations
// of telescope pupils, PSFs, polarimetry and segmented mirrors. Every run is
// recorded in a sqlite run store together with its metrics and the plots it
// produced.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/apertura-labs/apertura/internal/config"
	"github.com/apertura-labs/apertura/internal/monitoring"
	"github.com/apertura-labs/apertura/internal/report"
	"github.com/apertura-labs/apertura/internal/runstore"
	"github.com/apertura-labs/apertura/internal/scenario"
)

func main() {
	var (
		scenarioName = flag.String("scenario", "", "scenario to run (see -list)")
		configPath   = flag.String("config", "", "path to a JSON config file; defaults apply when empty")
		dbPath       = flag.String("db", "", "path to the run database (default from config)")
		outputDir    = flag.String("output", "", "base directory for plots (default from config)")
		seed         = flag.Int64("seed", 0, "override the RNG seed (0 keeps the config value)")
		list         = flag.Bool("list", false, "list available scenarios and exit")
		showRuns     = flag.Int("runs", 0, "show the last N recorded runs and exit")
		migrateOnly  = flag.Bool("migrate", false, "apply database migrations and exit")
	)
	flag.Parse()

	if *list {
		for _, s := range scenario.All() {
			fmt.Printf("%-12s %s\n", s.Name(), s.Describe())
		}
		return
	}

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if *seed != 0 {
		cfg.Seed = seed
	}
	if *dbPath == "" {
		*dbPath = cfg.GetDBPath()
	}
	if *outputDir == "" {
		*outputDir = cfg.GetOutputDir()
	}

	db, err := runstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("open run database: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		log.Fatalf("migrate run database: %v", err)
	}
	if *migrateOnly {
		version, dirty, err := db.MigrateVersion()
		if err != nil {
			log.Fatalf("read migration version: %v", err)
		}
		monitoring.Logf("database at migration version %d (dirty=%v)", version, dirty)
		return
	}

	store := runstore.NewRunStore(db)

	if *showRuns > 0 {
		printRuns(store, *showRuns)
		return
	}

	if *scenarioName == "" {
		log.Fatalf("no scenario given; use -scenario or -list")
	}
	s, err := scenario.Lookup(*scenarioName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runScenario(ctx, s, cfg, store, *outputDir); err != nil {
		log.Fatalf("scenario %s: %v", s.Name(), err)
	}
}

func runScenario(ctx context.Context, s scenario.Scenario, cfg *config.Config,
	store *runstore.RunStore, outputBase string) error {

	runID := uuid.NewString()
	started := time.Now().UTC()

	dir, err := report.MakeOutputDir(outputBase, s.Name(), started)
	if err != nil {
		return err
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := store.InsertRun(runID, s.Name(), cfgJSON, started); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}

	monitoring.Logf("run %s: scenario %s, output %s", runID, s.Name(), dir)

	result, err := s.Run(ctx, cfg, dir)
	if err != nil {
		if failErr := store.FailRun(runID, err.Error(), time.Now().UTC()); failErr != nil {
			monitoring.Logf("run %s: recording failure: %v", runID, failErr)
		}
		return err
	}

	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	artifactsJSON, err := json.Marshal(result.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	if err := store.CompleteRun(runID, metricsJSON, artifactsJSON, time.Now().UTC()); err != nil {
		return fmt.Errorf("record run completion: %w", err)
	}

	for name, value := range result.Metrics {
		monitoring.Logf("run %s: %s = %g", runID, name, value)
	}
	monitoring.Logf("run %s: complete, %d artifacts in %s", runID, len(result.Artifacts), dir)
	return nil
}

func printRuns(store *runstore.RunStore, limit int) {
	runs, err := store.ListRuns("", limit)
	if err != nil {
		log.Fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %-12s %-8s  %s\n",
			r.StartedAt.Format(time.RFC3339), r.Scenario, r.Status, r.RunID)
	}
}
