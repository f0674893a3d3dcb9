package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vvany/boutique/internal/cart"
	"github.com/vvany/boutique/internal/config"
	"github.com/vvany/boutique/internal/es"
	"github.com/vvany/boutique/internal/handlers"
	"github.com/vvany/boutique/internal/logging"
	loggingmw "github.com/vvany/boutique/internal/middleware/logging"
	"github.com/vvany/boutique/internal/mykafka"
	"github.com/vvany/boutique/internal/service/checkout"
	"github.com/vvany/boutique/internal/service/orders"
	"github.com/vvany/boutique/internal/service/search"
	"github.com/vvany/boutique/internal/service/token"
	"github.com/vvany/boutique/internal/storage"
	httpserver "github.com/vvany/boutique/internal/transport/http"
	"github.com/vvany/boutique/internal/ws"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("kafka disabled, KAFKA_ADDRESS is not set")
	}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("es init error: %v", err)
		}
		searchHandler = handlers.NewSearchHandler(esClient, search.ProductIndex)
	} else {
		logger.Warn("search disabled, ES_URL is not set")
	}

	imageStore, err := storage.NewDiskStore(configuration.UPLOAD_DIR, configuration.PUBLIC_BASE_URL)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	hub := ws.NewHub()
	cartStore := cart.NewStore()

	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}
	orderSvc := &orders.Service{DB: db, Producer: producer, Hub: hub}
	checkoutSvc := &checkout.Service{
		DB:             db,
		Cart:           cartStore,
		Producer:       producer,
		Hub:            hub,
		WhatsAppNumber: configuration.WHATSAPP_PHONE,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: producer},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: producer, Hub: hub},
		CartHandler:    &handlers.CartHandler{DB: db, Cart: cartStore, Checkout: checkoutSvc},
		OrderHandler:   &handlers.OrderHandler{Svc: orderSvc, Hub: hub},
		ProfileHandler: &handlers.ProfileHandler{DB: db, Orders: orderSvc},
		SearchHandler:  searchHandler,
		UploadHandler:  &handlers.UploadHandler{Store: imageStore},
		Tokens:         tokens,
		MediaDir:       configuration.UPLOAD_DIR,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
