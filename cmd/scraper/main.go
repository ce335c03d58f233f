package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"jobtrack/pkg/companies"
	"jobtrack/pkg/config"
	"jobtrack/pkg/export"
	"jobtrack/pkg/models"
	"jobtrack/pkg/notify"
	"jobtrack/pkg/schedule"
	"jobtrack/pkg/scorer"
	"jobtrack/pkg/scraper"
	"jobtrack/pkg/sources"
	"jobtrack/pkg/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Command line flags
	var (
		configFlag     = flag.String("config", "config/config.json", "Path to configuration file")
		dataFlag       = flag.String("data", "", "Data directory override")
		onceFlag       = flag.Bool("once", false, "Run a single scrape and exit")
		statusFlag     = flag.Bool("status", false, "Print scheduler status and exit")
		verboseFlag    = flag.Bool("verbose", false, "Verbose logging")
		exportFlag     = flag.String("export", "", "Export format (csv) - if specified, exports and exits")
		exportFileFlag = flag.String("export-file", "", "Custom export filename")
		testEmailFlag  = flag.Bool("test-email", false, "Send a test email and exit")
	)
	flag.Parse()

	// Setup logging
	logger := logrus.New()
	if *verboseFlag {
		logger.SetLevel(logrus.DebugLevel)
	}

	app, err := NewApplication(*configFlag, *dataFlag, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Close()

	switch {
	case *exportFlag != "":
		if err := app.ExportExistingData(*exportFlag, *exportFileFlag); err != nil {
			logger.Fatalf("Export failed: %v", err)
		}
	case *statusFlag:
		fmt.Print(app.scheduler.Status())
	case *testEmailFlag:
		if err := app.mailer.SendTest(); err != nil {
			logger.Fatalf("Test email failed: %v", err)
		}
	case *onceFlag:
		if err := app.RunOnce(context.Background()); err != nil {
			logger.Fatalf("Scrape failed: %v", err)
		}
	default:
		app.RunScheduler()
	}
}

type Application struct {
	cfg       *config.Config
	store     *store.Store
	pool      *sources.KeyPool
	engine    *scraper.Engine
	mailer    *notify.Mailer
	usage     *schedule.Usage
	scheduler *schedule.Scheduler
	exporter  *export.CSVExporter
	logger    *logrus.Logger
}

func NewApplication(configPath, dataDir string, logger *logrus.Logger) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	roster, err := companies.Load(cfg.CompaniesCSV)
	if err != nil {
		logger.Warnf("Company roster unavailable: %v", err)
	}
	history := companies.HistoryIndex(roster)

	sc := scorer.New(cfg.ResumePath, logger)
	pool := sources.NewKeyPool(cfg.RapidAPIKeys)

	srcs := buildSources(cfg, roster, pool, logger)
	engine := scraper.New(cfg, st, sc, history, srcs, logger)

	app := &Application{
		cfg:      cfg,
		store:    st,
		pool:     pool,
		engine:   engine,
		mailer:   notify.NewMailer(cfg.Email, logger),
		usage:    schedule.NewUsage(cfg.DataDir),
		exporter: export.NewCSVExporter("exports"),
		logger:   logger,
	}
	app.scheduler = schedule.New(cfg, app.usage, schedule.NewRotation(cfg.DataDir), app.runWithKey, logger)
	return app, nil
}

// buildSources assembles the adapter list in a stable order so that
// cross-source duplicates always resolve to the same winner.
func buildSources(cfg *config.Config, roster []companies.Company,
	pool *sources.KeyPool, logger *logrus.Logger) []sources.Source {
	return []sources.Source{
		sources.NewGreenhouse(cfg.DataDir, logger),
		sources.NewLever(roster, logger),
		sources.NewSimplifyJobs(logger),
		sources.NewActiveJobs(pool, logger),
		sources.NewInternships(pool, logger),
		sources.NewTheMuse(logger),
		sources.NewRemotive(logger),
		sources.NewSerpAPI(cfg.SerpAPIKey, 0, logger),
		sources.NewAdzuna(cfg.Adzuna, logger),
		sources.NewBoards(cfg.Boards, cfg.UserAgent, logger),
	}
}

// runWithKey pins the RapidAPI key chosen for this time slot, then runs
// a full scrape and the notification pass.
func (app *Application) runWithKey(ctx context.Context, key config.RapidAPIKey) error {
	if !app.pool.Select(key.Name) {
		app.logger.Warnf("Key %s not found in pool, using current", key.Name)
	}

	summary, err := app.engine.Run(ctx)
	if err != nil {
		return err
	}
	app.displaySummary(summary)

	return app.engine.Notify(app.mailer)
}

// RunOnce performs a single scrape with the first usable key.
func (app *Application) RunOnce(ctx context.Context) error {
	key := app.scheduler.PickKey(time.Now())
	if key == nil {
		app.logger.Warnf("No RapidAPI keys configured, key-based sources will be skipped")
		summary, err := app.engine.Run(ctx)
		if err != nil {
			return err
		}
		app.displaySummary(summary)
		return app.engine.Notify(app.mailer)
	}

	if err := app.runWithKey(ctx, *key); err != nil {
		return err
	}
	count, err := app.usage.Increment(key.Name)
	if err != nil {
		app.logger.Warnf("Failed to record usage: %v", err)
	} else {
		app.logger.Infof("Key %s at %d/%d requests this month", key.Name, count, schedule.MonthlyLimit)
	}
	return nil
}

// RunScheduler blocks running scheduled scrapes until interrupted.
func (app *Application) RunScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.scheduler.Start(ctx); err != nil {
		app.logger.Fatalf("Scheduler failed to start: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.logger.Infof("Shutting down")
	cancel()
	app.scheduler.Stop()
}

func (app *Application) displaySummary(summary *models.RunSummary) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SCRAPE SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total jobs found: %d\n", summary.TotalJobs)
	fmt.Printf("New jobs: %d\n", len(summary.NewJobs))
	fmt.Printf("Above threshold: %d\n", len(summary.HighScoreJobs))
	fmt.Printf("Errors: %d\n", summary.Errors)

	fmt.Println("\nJobs by source:")
	for source, count := range summary.Sources {
		fmt.Printf("  %-25s: %d\n", source, count)
	}

	if len(summary.NewJobs) > 0 {
		fmt.Println("\nTop new jobs:")
		for i, job := range summary.NewJobs {
			if i >= 5 {
				break
			}
			fmt.Printf("\n%d. %s\n", i+1, job.Title)
			fmt.Printf("   Company: %s\n", job.Company)
			fmt.Printf("   Score: %d/100\n", job.Score)
			fmt.Printf("   URL: %s\n", job.URL)
		}
	}
}

func (app *Application) ExportExistingData(format, filename string) error {
	if strings.ToLower(format) != "csv" {
		return fmt.Errorf("unsupported export format: %s", format)
	}

	page, err := app.store.SearchJobs(models.JobQuery{Status: "all", PerPage: 10000})
	if err != nil {
		return fmt.Errorf("failed to load jobs for export: %w", err)
	}
	if len(page.Jobs) == 0 {
		return fmt.Errorf("no jobs found to export")
	}

	stats, err := app.store.Stats()
	if err != nil {
		app.logger.Warnf("Failed to get stats for export: %v", err)
		filePath, err := app.exporter.ExportJobs(page.Jobs, filename)
		if err != nil {
			return fmt.Errorf("CSV export failed: %w", err)
		}
		app.logger.Infof("Exported %d jobs to CSV: %s", len(page.Jobs), filePath)
		return nil
	}

	filePath, err := app.exporter.ExportWithStats(page.Jobs, stats, filename)
	if err != nil {
		return fmt.Errorf("CSV export failed: %w", err)
	}
	app.logger.Infof("Exported %d jobs with stats to CSV: %s", len(page.Jobs), filePath)
	return nil
}

func (app *Application) Close() {
	if app.store != nil {
		app.store.Close()
	}
}
