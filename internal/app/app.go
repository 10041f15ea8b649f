package app

import (
	"beacon-backend/internal/config"
	"beacon-backend/internal/crediting"
	"beacon-backend/internal/database"
	"beacon-backend/internal/donations"
	"beacon-backend/internal/funds"
	"beacon-backend/internal/health"
	"beacon-backend/internal/middleware"
	"beacon-backend/internal/payments"
	"beacon-backend/internal/pkg/locks"
	"beacon-backend/internal/pledges"
	"beacon-backend/internal/recurring"
	"beacon-backend/internal/reporting"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Returns the DB and redis handles so main can verify
// connectivity at startup.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedSuffix: cfg.FrontendURLEndsWith}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	healthHandlers := &health.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	if db == nil {
		// No database: tests or misconfiguration. Only health is served.
		return app, nil, rdb, nil
	}

	lockRegistry := locks.NewRegistry()

	paymentService := &payments.Service{DB: db, Locks: lockRegistry}

	// Gateway webhook — mounted before org scoping; the gateway authenticates
	// by signature, not by organization header.
	gatewayWebhook := &payments.WebhookHandler{Service: paymentService, WebhookSecret: cfg.GatewayWebhookSecret}
	app.Post("/api/v1/gateway/webhook", gatewayWebhook.HandleWebhook)

	// --- Ledger modules (org-scoped) ---
	fundService := &funds.Service{DB: db}
	fundHandlers := &funds.Handlers{Service: fundService}
	fundGroup := app.Group("/api/v1/funds", middleware.RequireOrg())
	fundGroup.Post("/create-fund", fundHandlers.CreateFund)
	fundGroup.Get("/list-funds", fundHandlers.ListFunds)
	fundGroup.Patch("/update-fund/:id", fundHandlers.UpdateFund)

	donationService := &donations.Service{DB: db, Locks: lockRegistry}
	donationHandlers := &donations.Handlers{Service: donationService}
	donationGroup := app.Group("/api/v1/donations", middleware.RequireOrg())
	donationGroup.Post("/create-donation", donationHandlers.CreateDonation)
	donationGroup.Get("/get-donation/:id", donationHandlers.GetDonation)
	donationGroup.Post("/allocate/:id", donationHandlers.Allocate)

	paymentHandlers := &payments.Handlers{Service: paymentService}
	paymentGroup := app.Group("/api/v1/payments", middleware.RequireOrg())
	paymentGroup.Post("/record-payment", paymentHandlers.RecordPayment)
	paymentGroup.Get("/list-payments/:donation_id", paymentHandlers.ListPayments)

	pledgeService := &pledges.Service{DB: db}
	pledgeHandlers := &pledges.Handlers{Service: pledgeService}
	pledgeGroup := app.Group("/api/v1/pledges", middleware.RequireOrg())
	pledgeGroup.Post("/create-pledge", pledgeHandlers.CreatePledge)
	pledgeGroup.Get("/get-pledge/:id", pledgeHandlers.GetPledge)
	pledgeGroup.Post("/advance-schedule", pledgeHandlers.AdvanceSchedule)

	recurringService := &recurring.Service{
		DB:             db,
		Charger:        &recurring.RealGatewayCharger{SecretKey: cfg.GatewaySecretKey},
		GatewayTimeout: cfg.GatewayTimeout,
		MaxFailures:    cfg.RecurringMaxFailures,
		Locks:          lockRegistry,
	}
	recurringHandlers := &recurring.Handlers{Service: recurringService}
	recurringGroup := app.Group("/api/v1/recurring", middleware.RequireOrg())
	recurringGroup.Post("/create-gift", recurringHandlers.CreateGift)
	recurringGroup.Post("/run-cycle/:id", recurringHandlers.RunCycle)
	recurringGroup.Post("/run-due", recurringHandlers.RunDue)

	creditingService := &crediting.Service{DB: db, Payments: paymentService}
	creditingHandlers := &crediting.Handlers{Service: creditingService}
	creditingGroup := app.Group("/api/v1/crediting", middleware.RequireOrg())
	creditingGroup.Post("/add-soft-credit", creditingHandlers.AddSoftCredit)
	creditingGroup.Get("/list-soft-credits/:donation_id", creditingHandlers.ListSoftCredits)
	creditingGroup.Post("/submit-claim", creditingHandlers.SubmitClaim)
	creditingGroup.Post("/transition-claim/:id", creditingHandlers.TransitionClaim)

	reportingService := &reporting.Service{DB: db, Rdb: rdb, CacheTTL: cfg.ReportingCacheTTL}
	reportingHandlers := &reporting.Handlers{Service: reportingService}
	reportingGroup := app.Group("/api/v1/reporting", middleware.RequireOrg())
	reportingGroup.Get("/revenue-rollup", reportingHandlers.RevenueRollup)
	reportingGroup.Get("/lifecycle", reportingHandlers.Lifecycle)
	reportingGroup.Get("/retention", reportingHandlers.Retention)

	return app, db, rdb, nil
}
