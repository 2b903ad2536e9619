// Command seed fills the database with demo inventory: customers, tariff
// plans and SIM cards in a realistic mix of lifecycle states.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/OlyRIO/sim-erp-app/internal/billing"
	"github.com/OlyRIO/sim-erp-app/internal/platform/config"
	"github.com/OlyRIO/sim-erp-app/internal/platform/logger"
	"github.com/OlyRIO/sim-erp-app/internal/platform/postgres"
	"github.com/OlyRIO/sim-erp-app/internal/refdata"
	"github.com/OlyRIO/sim-erp-app/internal/sim/service"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/activationcode"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/event"
	"github.com/OlyRIO/sim-erp-app/internal/sim/store/simcard"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

var firstNames = []string{"Ana", "Ivan", "Marija", "Luka", "Petra", "Marko", "Iva", "Josip", "Lucija", "Tomislav"}
var lastNames = []string{"Horvat", "Kovačević", "Babić", "Marić", "Jurić", "Novak", "Kovačić", "Knežević", "Vuković", "Petrović"}

var plans = []struct {
	name        string
	description string
	priceCents  int64
}{
	{"Starter", "2 GB, 200 minutes", 799},
	{"Smart", "10 GB, unlimited minutes", 1499},
	{"Unlimited", "unlimited data and minutes", 2499},
	{"Business", "unlimited with EU roaming", 3999},
}

func main() {
	var (
		customerCount = flag.Int("customers", 25, "number of customers to create")
		simCount      = flag.Int("sims", 200, "number of SIM cards to create")
		reset         = flag.Bool("reset", false, "truncate all tables first")
		workers       = flag.Int("workers", 8, "seeding parallelism")
	)
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	if *reset {
		_, err := db.ExecContext(ctx, `TRUNCATE TABLE bills, billing_accounts, sim_events, activation_codes, sim_cards, customers, tariff_plans CASCADE`)
		if err != nil {
			log.Error("reset failed", "error", err)
			os.Exit(1)
		}
		log.Info("tables truncated")
	}

	refStore := refdata.NewPostgres(db)
	simService := service.New(
		simcard.NewPostgres(db),
		event.NewPostgres(db),
		activationcode.NewPostgres(db),
		tx.NewSQL(db, cfg.TxTimeout),
		service.WithLogger(log),
	)

	now := time.Now().UTC()

	planIDs := make([]uuid.UUID, 0, len(plans))
	for _, p := range plans {
		plan, err := refdata.NewTariffPlan(uuid.New(), p.name, p.description, p.priceCents, now)
		if err != nil {
			log.Error("bad plan", "name", p.name, "error", err)
			os.Exit(1)
		}
		if err := refStore.CreatePlan(ctx, plan); err != nil {
			log.Error("plan creation failed", "name", p.name, "error", err)
			os.Exit(1)
		}
		planIDs = append(planIDs, plan.ID)
	}
	log.Info("plans created", "count", len(planIDs))

	customerIDs := make([]uuid.UUID, 0, *customerCount)
	for i := range *customerCount {
		name := firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))]
		email := fmt.Sprintf("demo%d@example.com", i)
		customer, err := refdata.NewCustomer(uuid.New(), name, &email, now)
		if err != nil {
			log.Error("bad customer", "error", err)
			os.Exit(1)
		}
		if err := refStore.CreateCustomer(ctx, customer); err != nil {
			log.Error("customer creation failed", "error", err)
			os.Exit(1)
		}
		customerIDs = append(customerIDs, customer.ID)
	}
	log.Info("customers created", "count", len(customerIDs))

	billingStore := billing.NewPostgres(db)
	var billCount int
	for i, customerID := range customerIDs {
		account, err := billing.NewAccount(uuid.New(), fmt.Sprintf("BA-%06d", i+1), customerID, now)
		if err != nil {
			log.Error("bad billing account", "error", err)
			os.Exit(1)
		}
		if err := billingStore.CreateAccount(ctx, account); err != nil {
			log.Error("billing account creation failed", "error", err)
			os.Exit(1)
		}
		billCount += seedBills(ctx, log, billingStore, account, now)
	}
	log.Info("billing accounts created", "count", len(customerIDs), "bills", billCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for range *simCount {
		g.Go(func() error {
			return seedSim(gctx, simService, customerIDs, planIDs)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("sim seeding failed", "error", err)
		os.Exit(1)
	}
	log.Info("sims created", "count", *simCount)
}

// seedBills issues up to three months of bills per account, the older ones
// mostly paid so the open-bill lookups have something to find.
func seedBills(ctx context.Context, log *slog.Logger, store *billing.Postgres, account *billing.Account, now time.Time) int {
	months := rand.IntN(4)
	for i := range months {
		month := now.AddDate(0, -(months - 1 - i), 0).Format("2006-01")
		due := now.AddDate(0, 0, 14)
		bill, err := billing.NewBill(uuid.New(), account.ID, month, int64(500+rand.IntN(5000)), &due, now)
		if err != nil {
			log.Error("bad bill", "error", err)
			os.Exit(1)
		}
		if i < months-1 && rand.IntN(100) < 70 {
			bill.Status = billing.BillPaid
		}
		if err := store.CreateBill(ctx, bill); err != nil {
			log.Error("bill creation failed", "error", err)
			os.Exit(1)
		}
	}
	return months
}

// seedSim creates one SIM and walks it through a randomly chosen slice of
// the lifecycle so listings show every status.
func seedSim(ctx context.Context, svc *service.Service, customerIDs, planIDs []uuid.UUID) error {
	planID := planIDs[rand.IntN(len(planIDs))]
	sim, err := svc.Create(ctx, service.CreateParams{
		AllocateMSISDN: true,
		TariffPlanID:   &planID,
	})
	if err != nil {
		return fmt.Errorf("create sim: %w", err)
	}

	// Roughly: 40% stay AVAILABLE, 15% RESERVED, 30% ACTIVE and the rest
	// continue into SUSPENDED, LOST_STOLEN or TERMINATED.
	roll := rand.IntN(100)
	if roll < 40 {
		return nil
	}

	customerID := customerIDs[rand.IntN(len(customerIDs))]
	if _, err := svc.Reserve(ctx, sim.ID, customerID); err != nil {
		return fmt.Errorf("reserve sim: %w", err)
	}
	if roll < 55 {
		return nil
	}

	if _, err := svc.Activate(ctx, sim.ID, service.ActivateParams{}); err != nil {
		return fmt.Errorf("activate sim: %w", err)
	}
	switch {
	case roll < 85:
		return nil
	case roll < 90:
		_, err = svc.Suspend(ctx, sim.ID, "demo suspension")
	case roll < 95:
		_, err = svc.ReportLost(ctx, sim.ID, "demo loss report")
	default:
		_, err = svc.Terminate(ctx, sim.ID, "demo termination")
	}
	return err
}
