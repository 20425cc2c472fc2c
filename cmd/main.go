package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/framepoint/framepoint-backend/internal/db"
	"github.com/framepoint/framepoint-backend/internal/handlers"
	"github.com/framepoint/framepoint-backend/internal/middleware"
	"github.com/framepoint/framepoint-backend/internal/observability"
	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/realtime/bus"
	"github.com/framepoint/framepoint-backend/internal/repos"
	"github.com/framepoint/framepoint-backend/internal/server"
	"github.com/framepoint/framepoint-backend/internal/services"
	"github.com/framepoint/framepoint-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "framepoint",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)) * time.Second
	refreshTokenTTL := time.Duration(utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)) * time.Second

	// Permission overrides
	if path := utils.GetEnv("PERMISSIONS_FILE", "", log); path != "" {
		if err := permissions.LoadOverrides(path); err != nil {
			log.Error("Failed to load permission overrides", "error", err)
			os.Exit(1)
		}
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	assetRepo := repos.NewAssetRepo(thePG, log)
	assetVersionRepo := repos.NewAssetVersionRepo(thePG, log)
	annotationRepo := repos.NewAnnotationRepo(thePG, log)
	commentRepo := repos.NewCommentRepo(thePG, log)
	commentReactionRepo := repos.NewCommentReactionRepo(thePG, log)
	approvalWorkflowRepo := repos.NewApprovalWorkflowRepo(thePG, log)
	approvalStepRepo := repos.NewApprovalStepRepo(thePG, log)

	// Event bus: redis when configured, in-process otherwise
	var eventBus bus.Bus
	if utils.GetEnv("REDIS_ADDR", "", log) != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Error("Redis bus init failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("REDIS_ADDR not set, using in-process bus")
		eventBus = bus.NewLocalBus(log)
	}

	// Services
	log.Info("Setting up Services from main...")
	notifier := services.NewLogNotifier(log)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, accessTokenTTL, refreshTokenTTL)
	assetService := services.NewAssetService(thePG, log, assetRepo, assetVersionRepo, annotationRepo, commentRepo, commentReactionRepo, approvalWorkflowRepo, approvalStepRepo)
	annotationService := services.NewAnnotationService(thePG, log, assetRepo, annotationRepo)
	commentService := services.NewCommentService(thePG, log, assetRepo, commentRepo, commentReactionRepo, notifier)
	approvalService := services.NewApprovalService(thePG, log, assetRepo, approvalWorkflowRepo, approvalStepRepo, notifier)
	presenceService := services.NewPresenceService(log, eventBus)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService, accessTokenTTL)
	assetHandler := handlers.NewAssetHandler(assetService)
	annotationHandler := handlers.NewAnnotationHandler(annotationService)
	commentHandler := handlers.NewCommentHandler(commentService)
	approvalHandler := handlers.NewApprovalHandler(approvalService)
	presenceHandler := handlers.NewPresenceHandler(presenceService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		AssetHandler:      assetHandler,
		AnnotationHandler: annotationHandler,
		CommentHandler:    commentHandler,
		ApprovalHandler:   approvalHandler,
		PresenceHandler:   presenceHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{Addr: ":" + port, Handler: router}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := presenceService.Close(shutdownCtx); err != nil {
			log.Warn("Presence shutdown failed", "error", err)
		}
		if err := eventBus.Close(); err != nil {
			log.Warn("Bus shutdown failed", "error", err)
		}
		if otelShutdown != nil {
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Warn("Otel shutdown failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
