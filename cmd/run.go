package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"huay/config"
	"huay/database"
	"huay/events"
	"huay/repository"
	"huay/service"
)

// Run initializes the engine and starts the settlement worker
func Run(ctx context.Context) error {
	log.Println("Starting settlement engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()
	eventBus.Subscribe(events.EventTypeDrawSettled, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.DrawSettledEvent); ok {
			log.Printf("Draw %s settled: batch=%s settled=%d won=%d failed=%d",
				ev.PeriodID, ev.BatchID, ev.Settled, ev.Won, ev.Failed)
		}
	})

	// Initialize unit of work factory and services
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	ledgerService := service.NewLedgerService(uowFactory, cfg.LedgerMaxRetries)
	commissionService := service.NewCommissionService(uowFactory, ledgerService, events.NewBusPublisher(eventBus))
	settlementService := service.NewSettlementService(uowFactory, ledgerService, commissionService, events.NewBusPublisher(eventBus))

	betRepo := repository.NewBetRepository(db)

	// Settlement worker: periodically settle every period that has a
	// published result and pending bets.
	log.Printf("Settlement worker running in %s mode, polling every %s...", cfg.Environment, cfg.SettlePollInterval)
	ticker := time.NewTicker(cfg.SettlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down settlement worker...")
			db.Close()
			return nil
		case <-ticker.C:
			settlePendingDraws(ctx, betRepo, settlementService)
		}
	}
}

// settlePendingDraws runs one settlement sweep
func settlePendingDraws(ctx context.Context, betRepo *repository.BetRepository, settlement service.SettlementService) {
	periods, err := betRepo.GetSettleablePeriods(ctx)
	if err != nil {
		log.Printf("Failed to scan settleable periods: %v", err)
		return
	}

	for _, periodID := range periods {
		summary, err := settlement.SettleDraw(ctx, periodID)
		if err != nil {
			log.Printf("Failed to settle draw %s: %v", periodID, err)
			continue
		}
		if summary.Failed > 0 {
			for betID, betErr := range summary.Failures {
				log.Printf("Bet %d in draw %s failed to settle: %v", betID, periodID, betErr)
			}
		}
	}
}

// Reconcile verifies every account's transaction chain against its
// cached credit and reports discrepancies.
func Reconcile(ctx context.Context) error {
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	ledgerService := service.NewLedgerService(uowFactory, cfg.LedgerMaxRetries)

	accounts, err := repository.NewAccountRepository(db).GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	var bad int
	for _, account := range accounts {
		if err := ledgerService.VerifyChain(ctx, account.ID); err != nil {
			bad++
			log.Printf("Account %d (%s): %v", account.ID, account.Username, err)
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d accounts failed ledger verification", bad, len(accounts))
	}

	log.Printf("All %d accounts verified", len(accounts))
	return nil
}
