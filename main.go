package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/albumworks/albumserver/config"
	"github.com/albumworks/albumserver/database"
	"github.com/albumworks/albumserver/faces"
	"github.com/albumworks/albumserver/handlers"
	"github.com/albumworks/albumserver/ingest"
	"github.com/albumworks/albumserver/media"
	"github.com/albumworks/albumserver/repository"
	"github.com/albumworks/albumserver/roster"
	"github.com/albumworks/albumserver/scheduler"
	"github.com/albumworks/albumserver/signing"
	"github.com/albumworks/albumserver/vectorindex"
	"github.com/albumworks/albumserver/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.ItemsPath, cfg.EnrollmentPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeItem:       filepath.Base(cfg.ItemsPath),
		media.AssetTypeEnrollment: filepath.Base(cfg.EnrollmentPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore, cfg.CoverWidth)

	extractor := media.NewExtractor(cfg.FaceDNNNetConfigPath, cfg.FaceDNNNetModelPath, cfg.FaceRecModelPath, cfg.FaceRecModelName)
	defer extractor.Close()

	albumRepo := repository.NewAlbumRepository(db)
	itemRepo := repository.NewItemRepository(db)
	identityRepo := repository.NewIdentityRepository(db)

	codec, err := signing.LoadCodec(cfg.SigningPrivateKeyPath, cfg.SigningPublicKeyPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load signing key pair: %v", err)
	}

	indexClient := vectorindex.NewClient(cfg.VectorIndexURL, cfg.VectorIndexClass)
	rosterClient := roster.NewClient(cfg.RosterURL, cfg.RosterTokenURL, cfg.RosterClientID, cfg.RosterClientSecret)

	ingestSvc := ingest.NewService(itemRepo, mediaStore, mediaProcessor)
	tagger := faces.NewTagger(indexClient, extractor, mediaStore, itemRepo, identityRepo, cfg.MatchMaxDistance)
	sweeper := faces.NewSweeper(itemRepo, tagger)
	reconciler := faces.NewReconciler(rosterClient, indexClient, extractor, identityRepo, itemRepo, ingestSvc, cfg.MatchMaxDistance)

	log.Printf("Initializing tagging worker pool (Workers: %d, Queue Size: %d)...", cfg.NumTagWorkers, cfg.TagQueueSize)
	tagProcessor := workers.NewTagProcessor(itemRepo, tagger, cfg.TagQueueSize, cfg.NumTagWorkers)
	defer tagProcessor.Stop()

	updateTask := func() error {
		ctx := context.Background()
		if err := reconciler.Run(ctx); err != nil {
			return err
		}
		return sweeper.Sweep(ctx)
	}

	if cfg.RosterURL == "" {
		log.Println("WARNING: ROSTER_URL not set; roster reconciliation is disabled")
		updateTask = func() error {
			return sweeper.Sweep(context.Background())
		}
	}

	periodic := scheduler.NewPeriodicTask("roster-update", cfg.UpdateInterval, cfg.StopOnError, updateTask)
	if err := periodic.Start(); err != nil {
		log.Fatalf("FATAL: Failed to start periodic update task: %v", err)
	}
	defer periodic.Stop()

	// one pass at startup so a fresh deployment does not wait a full
	// interval for its first reconciliation
	go func() {
		if err := updateTask(); err != nil {
			log.Printf("Startup update pass failed: %v", err)
		}
	}()

	presenter := handlers.Presenter{Codec: codec, BaseURL: cfg.BaseURL, TTL: cfg.SignedURLTTL}
	albumHandler := &handlers.AlbumHandler{Albums: albumRepo, Presenter: presenter}
	itemHandler := &handlers.ItemHandler{Items: itemRepo, Ingest: ingestSvc, TagQueue: tagProcessor, Presenter: presenter}
	identityHandler := &handlers.IdentityHandler{Identities: identityRepo, Presenter: presenter}
	assetHandler := &handlers.AssetHandler{Items: itemRepo, Store: mediaStore, Codec: codec, BaseURL: cfg.BaseURL}

	auth := handlers.DisabledAuth()
	if cfg.AuthPublicKeyPath != "" {
		pemData, err := os.ReadFile(cfg.AuthPublicKeyPath)
		if err != nil {
			log.Fatalf("FATAL: Failed to read auth public key: %v", err)
		}
		authKey, err := handlers.LoadAuthPublicKey(pemData)
		if err != nil {
			log.Fatalf("FATAL: Failed to parse auth public key: %v", err)
		}
		auth = handlers.AuthMiddleware(authKey, cfg.AdminSubjects)
	} else {
		log.Println("WARNING: AUTH_PUBLIC_KEY_PATH not set; running with authentication disabled")
	}

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	// signed asset links carry their own proof; no bearer token needed
	r.Get("/items/{item_id}/{expiry}/{variant}", assetHandler.ServeAsset)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", albumHandler.ListAlbums)
			r.With(handlers.RequireAdmin).Post("/", albumHandler.CreateAlbum)
			r.Route("/{album_id}", func(r chi.Router) {
				r.Get("/", albumHandler.GetAlbum)
				r.With(handlers.RequireAdmin).Put("/", albumHandler.UpdateAlbum)
				r.With(handlers.RequireAdmin).Put("/sort_order", albumHandler.SetAlbumOrder)
				r.With(handlers.RequireAdmin).Put("/preview", albumHandler.SetAlbumPreview)
				r.Post("/items", itemHandler.UploadItems)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Route("/{item_id}", func(r chi.Router) {
				r.Get("/", itemHandler.GetItem)
				r.Delete("/", itemHandler.DeleteItem)
			})
		})

		r.Route("/identities", func(r chi.Router) {
			r.Get("/", identityHandler.ListIdentities)
			r.Get("/{identity_id}", identityHandler.GetIdentity)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
