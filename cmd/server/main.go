package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/online-auction/internal/auction"
	"github.com/iliyamo/online-auction/internal/config"
	"github.com/iliyamo/online-auction/internal/database"
	"github.com/iliyamo/online-auction/internal/handler"
	appmw "github.com/iliyamo/online-auction/internal/middleware"
	"github.com/iliyamo/online-auction/internal/queue"
	"github.com/iliyamo/online-auction/internal/repository"
	"github.com/iliyamo/online-auction/internal/router"
	"github.com/iliyamo/online-auction/internal/service"
	"github.com/iliyamo/online-auction/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it rate limiting and response caching
	// switch off and everything else keeps working.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	products := repository.NewProductRepo(db)
	auctions := repository.NewAuctionRepo(db)
	orders := repository.NewOrderRepo(db)

	engine := auction.NewEngine(auction.Rules{
		MinIncrementPct: cfg.MinIncrementPct,
		SnipeWindow:     cfg.SnipeWindow,
		SnipeExtension:  cfg.SnipeExtension,
	})
	publisher := service.NewSettlementPublisher()

	h := router.Handlers{
		Auth: &handler.AuthHandler{
			Users:          users,
			Tokens:         tokens,
			JWTSecret:      cfg.JWTSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			BcryptCost:     cfg.BcryptCost,
		},
		Products: &handler.ProductHandler{Products: products},
		Auctions: &handler.AuctionHandler{
			Engine:    engine,
			Auctions:  auctions,
			Products:  products,
			Publisher: publisher,
		},
		Bids:   &handler.BidHandler{Engine: engine, Auctions: auctions},
		Orders: &handler.OrderHandler{Orders: orders},
	}
	mw := router.Middleware{
		Cache:     appmw.NewRedisCache(config.LoadCacheConfig(), rdb),
		RateLimit: appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.Register(e, h, mw, cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background work: settlement consumer and the expiry sweeper.
	consumer := &queue.SettlementConsumer{Orders: orders, Products: products}
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("settlement consumer stopped: %v", err)
		}
	}()
	sweeper := &worker.Sweeper{Auctions: auctions, Interval: cfg.SweepInterval}
	go sweeper.Run(ctx)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
