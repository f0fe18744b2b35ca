package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/avgeo/notam-studio/internal/api"
	"github.com/avgeo/notam-studio/internal/basemap"
	"github.com/avgeo/notam-studio/internal/export"
	"github.com/avgeo/notam-studio/internal/ingest"
	"github.com/avgeo/notam-studio/internal/ocr"
	"github.com/avgeo/notam-studio/internal/store"
	"github.com/avgeo/notam-studio/internal/viewport"
	"github.com/avgeo/notam-studio/pkg/parseapi"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the notice ingestion and map session server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st := store.New()
		idx := store.NewIndex(st)
		vp := viewport.New(st, cfg.Viewport)

		parser := parseapi.NewClient(cfg.Parser.BaseURL,
			parseapi.WithHTTPClient(&http.Client{Timeout: cfg.Parser.Timeout()}))

		recognizer, err := ocr.NewRecognizer(cfg.OCR)
		if err != nil {
			return err
		}

		pipeline := ingest.New(parser, recognizer, st)

		catalog, err := basemap.LoadCatalog(cfg.Basemap.CatalogPath)
		if err != nil {
			return err
		}
		boundary := basemap.LoadBoundary(cfg.Basemap.BoundaryPath)

		var disk *basemap.DiskCache
		if cfg.Basemap.CachePath != "" {
			disk, err = basemap.NewDiskCache(cfg.Basemap.CachePath, cfg.Basemap.CacheTTL())
			if err != nil {
				return err
			}
			defer func() { _ = disk.Close() }()
		}

		tiles := basemap.NewTileProxy(
			catalog,
			basemap.NewTileCache(cfg.Basemap.CacheEntries, cfg.Basemap.CacheTTL()),
			disk,
			rate.NewLimiter(rate.Limit(cfg.Basemap.UpstreamQPS), cfg.Basemap.UpstreamBurst),
			cfg.Basemap.FetchTimeout(),
		)

		renderer := export.NewHTTPRenderer(cfg.Export.RendererURL, cfg.Export.Timeout())
		exporter := export.NewService(renderer, st, vp, boundary, cfg.Export)

		server := api.NewServer(st, idx, pipeline, vp, catalog, boundary, tiles, exporter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Routes(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("basemap_styles", len(catalog.Styles)),
			zap.Int("boundary_features", len(boundary.Data.Features)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
