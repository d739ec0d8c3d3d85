package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	v1 "inspection_log/api/v1"
	"inspection_log/internal/auth"
	"inspection_log/internal/cache"
	"inspection_log/internal/config"
	"inspection_log/internal/db"
	"inspection_log/internal/docno"
	"inspection_log/internal/logging"
	"inspection_log/internal/report"
	"inspection_log/internal/repository"
	"inspection_log/internal/seed"
	"inspection_log/internal/service"
	"inspection_log/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "optional INI config file")
	flag.Parse()

	// 1. Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromINI(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	// 2. Logging
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	log := logrus.NewEntry(logger)
	logrus.SetLevel(logger.GetLevel())
	logrus.SetFormatter(logger.Formatter)
	log.WithField("db_driver", cfg.DB.Driver).Info("Configuration loaded")

	ctx := context.Background()

	// 3. Storage
	var (
		formRepo repository.FormRepository
		userRepo repository.UserRepository
		gormDB   *gorm.DB
	)
	if cfg.DB.Driver == config.DriverMemory {
		formRepo = repository.NewMemoryFormRepository()
		userRepo = repository.NewMemoryUserRepository()
		log.Warn("Using in-memory storage, data is lost on restart")
	} else {
		gormDB, err = db.Open(cfg.DB.Driver, cfg.DB.DSN, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to open database")
		}
		defer db.Close(gormDB)

		if cfg.Migrate {
			if err := db.Migrate(gormDB, log); err != nil {
				log.WithError(err).Fatal("Failed to migrate database")
			}
		}
		formRepo = repository.NewGormFormRepository(gormDB)
		userRepo = repository.NewGormUserRepository(gormDB)
	}

	verifier, err := auth.NewVerifier(cfg.PasswordMode)
	if err != nil {
		log.WithError(err).Fatal("Invalid password mode")
	}

	if cfg.Seed {
		s := &seed.Seeder{Users: userRepo, Forms: formRepo, Verifier: verifier, Logger: log}
		if _, err := s.Run(ctx); err != nil {
			log.WithError(err).Fatal("Failed to seed sample data")
		}
	}

	// 4. Redis PDF cache (optional)
	var pdfCache *cache.PDFCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, PDF cache disabled")
		} else {
			pdfCache = cache.NewPDFCache(client, time.Duration(cfg.Report.CacheTTLSec)*time.Second, log)
			defer pdfCache.Close()
			log.WithField("addr", cfg.Redis.Addr).Info("Redis connected")
		}
	}

	// 5. Socket.IO workflow events
	socketServer := ws.NewServer(cfg.CORSOrigin, log)
	publisher := ws.NewPublisher(socketServer, log)
	ws.RegisterHandlers(socketServer, publisher)
	ws.Serve(socketServer, log)
	defer socketServer.Close()

	// 6. Services
	issuer, err := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize token issuer")
	}

	formCfg := service.FormServiceConfig{
		Repo:      formRepo,
		Policy:    docno.NewPolicy(cfg.Workflow.DocPrefix),
		Strict:    cfg.Workflow.Strict,
		Publisher: publisher,
		Renderer:  report.NewPDFRenderer(cfg.Report.AssetsDir, log),
		Logger:    log,
	}
	if pdfCache != nil {
		formCfg.Cache = pdfCache
	}
	forms := service.NewFormService(formCfg)
	users := service.NewUserService(userRepo, verifier, log)

	// 7. HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	v1.SetupRouter(r, v1.Deps{
		Forms:        forms,
		Users:        users,
		Issuer:       issuer,
		AuthRequired: cfg.AuthRequired,
		CORSOrigin:   cfg.CORSOrigin,
		Socket:       socketServer,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
