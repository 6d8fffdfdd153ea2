package api

import (
	"net/http"

	"github.com/Jae876/crestara/internal/api/handler"
	"github.com/Jae876/crestara/internal/api/middleware"
	"github.com/Jae876/crestara/internal/api/spec"
	"github.com/Jae876/crestara/internal/config"
	"github.com/Jae876/crestara/internal/idempotency"
	"github.com/Jae876/crestara/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Router assembles the HTTP surface from the wired services.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	idemStore *idempotency.Store

	accounts  *service.AccountService
	ledger    *service.LedgerService
	casino    *service.CasinoService
	mining    *service.MiningService
	referrals *service.ReferralService
	funding   *service.FundingService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redis redis.Cmdable,
	idemStore *idempotency.Store,
	accounts *service.AccountService,
	ledger *service.LedgerService,
	casino *service.CasinoService,
	mining *service.MiningService,
	referrals *service.ReferralService,
	funding *service.FundingService,
) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redis,
		idemStore: idemStore,
		accounts:  accounts,
		ledger:    ledger,
		casino:    casino,
		mining:    mining,
		referrals: referrals,
		funding:   funding,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	accountHandler := handler.NewAccountHandler(api.accounts, api.ledger)
	casinoHandler := handler.NewCasinoHandler(api.casino)
	miningHandler := handler.NewMiningHandler(api.mining)
	referralHandler := handler.NewReferralHandler(api.referrals)
	fundingHandler := handler.NewFundingHandler(api.funding)

	// Operational endpoints
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/v1/accounts", accountHandler.Register)
		r.Get("/v1/casino/games", casinoHandler.ListGames)
		r.Get("/v1/casino/verify/{betID}", casinoHandler.VerifyBet)
		r.Get("/v1/mining/packages", miningHandler.ListPackages)
		r.Get("/v1/funding/coins", fundingHandler.ListCoins)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/accounts/balance", accountHandler.Balance)
		r.Get("/v1/casino/bets", casinoHandler.ListBets)
		r.Get("/v1/mining/positions", miningHandler.ListPositions)
		r.Post("/v1/referral/track", referralHandler.Track)
		r.Get("/v1/referral/stats", referralHandler.Stats)
		r.Get("/v1/funding/transactions", fundingHandler.ListTransactions)

		// Mutating money movements require an Idempotency-Key.
		r.Group(func(r chi.Router) {
			r.Use(middleware.IdempotencyMiddleware(api.idemStore, api.logger))

			r.Post("/v1/casino/bets", casinoHandler.PlaceBet)
			r.Post("/v1/mining/positions", miningHandler.Purchase)
			r.Post("/v1/funding/deposits", fundingHandler.Deposit)
			r.Post("/v1/funding/withdrawals", fundingHandler.Withdraw)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.Get("/v1/accounts/{id}", accountHandler.Get)
			r.Post("/v1/mining/cycles/run", miningHandler.RunCycle)
			r.Post("/v1/referral/credit", referralHandler.Credit)
			r.Post("/v1/funding/deposits/{txID}/confirm", fundingHandler.ConfirmDeposit)
			r.Post("/v1/funding/withdrawals/{txID}/resolve", fundingHandler.ResolveWithdrawal)
		})
	})

	return r
}

// Handler returns the router as a plain http.Handler.
func (api *Router) Handler() http.Handler {
	return api.Routes()
}
