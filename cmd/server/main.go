package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dojoflow/backend/internal/auth"
	"github.com/dojoflow/backend/internal/catalog"
	"github.com/dojoflow/backend/internal/config"
	"github.com/dojoflow/backend/internal/middleware"
	"github.com/dojoflow/backend/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// ── PostgreSQL (users) ───────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connect", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	users := store.NewPostgresStore(pgPool)
	if err := users.Migrate(ctx); err != nil {
		log.Error("postgres migrate", "err", err)
		os.Exit(1)
	}

	// ── MongoDB (techniques, sequences) ──────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Error("mongo connect", "err", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx)
	entities := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis (session token index) ──────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Error("redis connect", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()
	tokenIndex := auth.NewRedisTokenIndex(rdb, cfg.SessionTTL)

	// ── MinIO (demonstration media) ──────────────────────────
	media, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Error("minio connect", "err", err)
		os.Exit(1)
	}

	// ── Services & handlers ──────────────────────────────────
	authSvc := auth.NewService(users, tokenIndex, cfg.BcryptCost, log)
	authHandler := auth.NewHandler(authSvc, users)
	catalogSvc := catalog.NewService(entities, entities, users, cfg.StrictTechniqueFields, log)
	catalogHandler := catalog.NewHandler(catalogSvc, media)

	requireAuth := middleware.RequireAuth(authSvc)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Identity routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/sign-up", authHandler.SignUp)
		r.Post("/sign-in", authHandler.SignIn)
		r.With(requireAuth).Delete("/sign-out", authHandler.SignOut)
		r.With(requireAuth).Patch("/change-password", authHandler.ChangePassword)
		r.With(requireAuth).Patch("/profile", authHandler.UpdateProfile)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", authHandler.ListUsers)
		r.Get("/{id}", authHandler.GetUser)
	})

	r.Route("/api/techniques", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", catalogHandler.ListTechniques)
		r.Post("/", catalogHandler.CreateTechnique)
		r.Get("/{id}", catalogHandler.GetTechnique)
		r.Patch("/{id}", catalogHandler.UpdateTechnique)
		r.Delete("/{id}", catalogHandler.DeleteTechnique)
		r.Patch("/{id}/link", catalogHandler.LinkTechnique)
		r.Put("/{id}/demonstration", catalogHandler.UploadDemonstration)
		r.Get("/{id}/demonstration", catalogHandler.DownloadDemonstration)
	})

	r.Route("/api/sequences", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", catalogHandler.ListSequences)
		r.Post("/", catalogHandler.CreateSequence)
		r.Get("/{id}", catalogHandler.GetSequence)
		r.Patch("/{id}", catalogHandler.UpdateSequence)
		r.Delete("/{id}", catalogHandler.DeleteSequence)
		r.Post("/{id}/follow", catalogHandler.FollowSequence)
		r.Delete("/{id}/follow", catalogHandler.UnfollowSequence)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Info("backend listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
