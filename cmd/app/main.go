package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"confidential_casino/internal/casino"
	"confidential_casino/internal/config"
	"confidential_casino/internal/db"
	httpServer "confidential_casino/internal/http"
	"confidential_casino/internal/http/handlers"
	"confidential_casino/internal/http/middleware"
	"confidential_casino/internal/inco"
	"confidential_casino/internal/logger"
	"confidential_casino/internal/repository"
	"confidential_casino/internal/service"
	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"
	"confidential_casino/internal/ws"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keypair, err := wallet.LoadKeypair(cfg.WalletKeypairPath)
	if err != nil {
		logger.Fatal("failed to load wallet", "path", cfg.WalletKeypairPath, "error", err)
	}
	logger.Info("wallet loaded", "address", keypair.PublicKey().String())

	checks := map[string]handlers.Pinger{}

	// Sessions and audit go to Postgres when configured, otherwise memory
	var (
		store     service.SessionStore = service.NewMemoryStore()
		auditRepo service.AuditRepo
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer pool.Close()
		store = repository.NewSessionRepository(pool)
		auditRepo = repository.NewAuditRepository(pool)
		checks["database"] = pool.Ping
	}

	var challenges service.ChallengeStore = service.NewMemoryChallengeStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		challenges = service.NewRedisChallengeStore(rdb)
		middleware.InitRedisRateLimiter(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	rpc := solana.NewClient(cfg.RPCURL, solana.WithConfirmTimeout(cfg.ConfirmTimeout))
	checks["ledger"] = func(ctx context.Context) error {
		_, err := rpc.GetLatestBlockhash(ctx)
		return err
	}
	incoClient := inco.NewClient(cfg.IncoAPIURL)
	checks["inco"] = incoClient.Health

	programID, incoProgram, authority := cfg.ProgramIDs()
	program := casino.NewProgram(programID, incoProgram, authority)

	hub := ws.NewHub()
	audit := service.NewAuditService(auditRepo)
	wagers := service.NewWagerService(service.WagerDeps{
		Program:    program,
		Ledger:     rpc,
		Inco:       incoClient,
		Store:      store,
		Challenges: challenges,
		Notifier:   hub,
		Audit:      audit,
		Limits: service.WagerLimits{
			MinStake: cfg.MinStake,
			MaxStake: cfg.MaxStake,
		},
		ChallengeTTL: cfg.RevealChallengeTTL,
	})
	auth := service.NewAuthService(challenges, audit, cfg.AuthDomain, cfg.AuthChallengeTTL)

	if cfg.LogJSON {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for the wallet frontend on a different origin
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, httpServer.RouteDeps{
		Handler: handlers.NewHandler(wagers, auth, audit, keypair),
		Health:  handlers.NewHealthHandler(version, checks),
		Hub:     hub,
		Limits: httpServer.RateLimits{
			API:         cfg.APIRateLimit,
			APIWindow:   cfg.APIRateWindow,
			Wager:       cfg.WagerRateLimit,
			WagerWindow: cfg.WagerRateWindow,
		},
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
	logger.Info("server exited")
}
