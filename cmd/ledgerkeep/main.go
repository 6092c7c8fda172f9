package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/tmahesh/ledgerkeep/internal/config"
	"github.com/tmahesh/ledgerkeep/internal/database"
	"github.com/tmahesh/ledgerkeep/internal/database/repository"
	"github.com/tmahesh/ledgerkeep/internal/service"
	"github.com/tmahesh/ledgerkeep/internal/tui"
)

func main() {
	sweepOnce := flag.Bool("sweep-once", false, "run one catch-up sweep and exit")
	exportCSV := flag.String("export-csv", "", "export transactions to a CSV file and exit")
	importCSV := flag.String("import-csv", "", "import transactions from a CSV file and exit")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	if err := database.RunMigrations(cfg.Database.Path, "internal/database/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.SeedDefaults(ctx, db); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}

	// repositories
	loanRepo := repository.NewLoanRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	remRepo := repository.NewReminderRepo(db)

	// services; events go to the TUI once it is up, and to the log before.
	dispatcher := &tui.Dispatcher{}
	var events service.Events = dispatcher
	if *sweepOnce || *exportCSV != "" || *importCSV != "" {
		events = service.LogEvents{Log: log}
	}

	syncer := &service.LoanSyncer{Transactions: txRepo, Events: events, Log: log}
	generator := &service.Generator{Loans: loanRepo, Reminders: remRepo, Events: events, Log: log}
	ledger := &service.Ledger{
		Loans: loanRepo, Reminders: remRepo,
		Syncer: syncer, Generator: generator, Events: events, Log: log,
	}
	editor := &service.Editor{
		Loans: loanRepo, Syncer: syncer, Generator: generator, Events: events, Log: log,
	}
	people := &service.People{Loans: loanRepo}
	notifier := &service.Notifier{
		Loans: loanRepo, Reminders: remRepo, Events: events, Log: log,
		DueSoonDays: cfg.Alerts.DueSoonDays,
		BatchSize:   cfg.Alerts.BatchSize,
		BatchDelay:  cfg.Alerts.BatchDelay(),
	}
	scheduler := &service.Scheduler{
		Loans: loanRepo, Generator: generator, Notifier: notifier, Log: log,
		Interval: cfg.Sweep.Interval(),
	}
	impexp := &service.ImpExp{Transactions: txRepo}

	switch {
	case *sweepOnce:
		if err := scheduler.RunOnce(ctx); err != nil {
			log.Fatalf("sweep: %v", err)
		}
		return
	case *exportCSV != "":
		f, err := os.Create(*exportCSV)
		if err != nil {
			log.Fatalf("export: %v", err)
		}
		defer f.Close()
		if err := impexp.Export(ctx, f); err != nil {
			log.Fatalf("export: %v", err)
		}
		return
	case *importCSV != "":
		f, err := os.Open(*importCSV)
		if err != nil {
			log.Fatalf("import: %v", err)
		}
		defer f.Close()
		res, err := impexp.Import(ctx, f)
		if err != nil {
			log.Fatalf("import: %v", err)
		}
		for _, e := range res.Errors {
			log.Warn(e)
		}
		fmt.Printf("imported %d transactions (%d errors)\n", res.Imported, len(res.Errors))
		return
	}

	scheduler.Start()
	defer scheduler.Stop()

	app := tui.New(ctx, cfg, tui.Repos{
		Loans:        loanRepo,
		Transactions: txRepo,
		Reminders:    remRepo,
	}, tui.Services{
		Ledger:    ledger,
		Editor:    editor,
		People:    people,
		Scheduler: scheduler,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	dispatcher.Attach(p)
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui: %v", err)
	}
}
