package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/etendy/canvas/backend-go/internal/asset"
	"github.com/etendy/canvas/backend-go/internal/capability"
	"github.com/etendy/canvas/backend-go/internal/config"
	"github.com/etendy/canvas/backend-go/internal/design"
	"github.com/etendy/canvas/backend-go/internal/export"
	mw "github.com/etendy/canvas/backend-go/internal/middleware"
	"github.com/etendy/canvas/backend-go/internal/render"
	"github.com/etendy/canvas/backend-go/internal/resource"
	"github.com/etendy/canvas/backend-go/internal/session"
	"github.com/etendy/canvas/backend-go/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	assets := asset.NewDir(cfg.AssetDir)
	cache := resource.NewCache(resource.Router{
		Data:  resource.DataURIFetcher{},
		HTTP:  resource.NewHTTPFetcher(cfg.FetchTimeout),
		Local: assets,
	})

	fonts := render.NewFontBook()
	if cfg.FontDir != "" {
		n, err := fonts.LoadDir(cfg.FontDir)
		if err != nil {
			slog.Error("load fonts", "error", err, "dir", cfg.FontDir)
			os.Exit(1)
		}
		slog.Info("fonts loaded", "count", n, "families", fonts.Families())
	}

	renderer := render.New(cache,
		render.WithFonts(fonts),
		render.WithPrefetchWorkers(cfg.PrefetchWorkers),
	)

	designService := design.NewService(st, renderer, cfg.ThumbnailSize, cfg.ThumbnailQuality)
	designHandler := design.NewHandler(designService)
	exportHandler := export.NewHandler(renderer, cfg.JPEGQuality, cfg.ThumbnailSize, cfg.ThumbnailQuality)

	hub := session.NewHub()
	go hub.Run()
	sessionHandler := session.NewHandler(hub, renderer, designService, cfg.HistoryLimit, cfg.Origins())

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(capability.Middleware([]byte(cfg.CapabilitySecret), capability.Unrestricted()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/assets/upload", assets.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix(asset.URLPrefix).Handler(assets.Serve()).Methods("GET")

	r.HandleFunc("/export/jpeg", exportHandler.ExportJPEG).Methods("POST", "OPTIONS")
	r.HandleFunc("/export/thumbnail", exportHandler.ExportThumbnail).Methods("POST", "OPTIONS")

	designHandler.Routes(r)

	r.Handle("/ws/session", sessionHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server", "sessions", hub.Count())
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "database", store.Scheme(cfg.DatabaseURL))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
