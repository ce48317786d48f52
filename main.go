package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/Jereff77/SPHCFDIs/config"
	"github.com/Jereff77/SPHCFDIs/internal/cron"
	"github.com/Jereff77/SPHCFDIs/internal/database"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/repository"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
	"github.com/Jereff77/SPHCFDIs/services/imap"
	"github.com/Jereff77/SPHCFDIs/services/processor"
)

func main() {
	app := &cli.App{
		Name:  "sph-cfdis",
		Usage: "Ingests bank notification emails and CFDI invoices into the ledger",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start the polling loop with the scheduled cron jobs",
				Action: runLoop,
			},
			{
				Name:   "once",
				Usage:  "Process unseen messages a single time and exit",
				Action: runOnce,
			},
			{
				Name:   "test",
				Usage:  "Verify IMAP and database connectivity",
				Action: runTest,
			},
			{
				Name:   "status",
				Usage:  "Print processor status and ledger totals as JSON",
				Action: runStatus,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// application wires the shared dependencies every command needs.
type application struct {
	cfg       *config.Config
	log       logger.Logger
	db        *gorm.DB
	repos     *repository.Repositories
	mailbox   *imap.Client
	processor *processor.Processor
	closeFns  []func()
}

func initApplication() (*application, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, errors.Wrap(err, "config initialization failed")
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	app := &application{cfg: cfg, log: appLogger}

	tracer, tracerCloser, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Warnf("Could not initialize jaeger tracer: %v", err)
	} else {
		opentracing.SetGlobalTracer(tracer)
		app.closeFns = append(app.closeFns, func() { tracerCloser.Close() })
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		app.close()
		return nil, errors.Wrap(err, "database initialization failed")
	}

	app.db = db
	app.repos = repository.InitRepositories(db)
	app.mailbox = imap.NewClient(cfg.IMAP, appLogger)
	app.closeFns = append(app.closeFns, app.mailbox.Disconnect)
	app.processor = processor.NewProcessor(
		cfg.Processor,
		appLogger,
		app.mailbox,
		app.repos.BankMovementRepository,
		app.repos.InvoiceRepository,
	)

	return app, nil
}

func (a *application) close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runLoop(c *cli.Context) error {
	app, err := initApplication()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := app.processor.TestConnections(ctx); err != nil {
		return errors.Wrap(err, "connection check failed")
	}

	cronManager := cron.NewCronManager(
		app.cfg.Cron,
		app.log,
		app.repos.BankMovementRepository,
		app.repos.InvoiceRepository,
	)
	cronManager.Start()
	defer cronManager.Stop()

	scheduler := processor.NewScheduler(app.cfg.Processor, app.cfg.Schedule, app.log, app.processor)

	app.log.Infof("Starting processing loop")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	app.log.Infof("Shutdown complete")
	return nil
}

func runOnce(c *cli.Context) error {
	app, err := initApplication()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := signalContext()
	defer cancel()

	app.processor.EnsureFolders(ctx)

	stats, err := app.processor.ProcessBatch(ctx)
	if err != nil {
		return errors.Wrap(err, "processing failed")
	}

	return printJSON(stats)
}

func runTest(c *cli.Context) error {
	app, err := initApplication()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := app.processor.TestConnections(ctx); err != nil {
		return errors.Wrap(err, "connection check failed")
	}

	fmt.Println("All connections OK")
	return nil
}

func runStatus(c *cli.Context) error {
	app, err := initApplication()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := signalContext()
	defer cancel()

	status, err := app.processor.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "status check failed")
	}

	return printJSON(status)
}

func runMigrate(c *cli.Context) error {
	app, err := initApplication()
	if err != nil {
		return err
	}
	defer app.close()

	if err := repository.MigrateDB(app.cfg.Database, app.db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	app.log.Infof("Database migration completed successfully")
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
