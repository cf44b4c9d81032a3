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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/styloglo/styloglo/internal/api"
	"github.com/styloglo/styloglo/internal/auth"
	"github.com/styloglo/styloglo/internal/config"
	"github.com/styloglo/styloglo/internal/logging"
	"github.com/styloglo/styloglo/internal/session"
	"github.com/styloglo/styloglo/internal/stylist"
)

// CLI flags
var (
	portFlag       int
	modelFlag      string
	imageModelFlag string
	scanFloorFlag  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "styloglo",
	Short: "Local server for AI portrait styling",
	Long: `Styloglo starts a local server that analyzes a portrait photo, builds a
personal style profile, and applies AI-generated style edits on top of it.
Capture a portrait, review the recommendations, and iterate on looks with
full undo history.

Examples:
  styloglo
  styloglo --port 9090
  styloglo --image-model gemini-3-pro-image-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model for analysis and planning")
	rootCmd.Flags().StringVar(&imageModelFlag, "image-model", "", "Gemini model for image edits")
	rootCmd.Flags().DurationVar(&scanFloorFlag, "scan-floor", 0, "Minimum visible duration of the analysis phase")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg := config.Load()
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if imageModelFlag != "" {
		cfg.ImageModel = imageModelFlag
	}
	if scanFloorFlag != 0 {
		cfg.ScanFloor = scanFloorFlag
	}

	// Validate API key at startup
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get API key")
	}

	ctx := context.Background()
	client, err := stylist.New(ctx, apiKey, cfg.Model, cfg.ImageModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	if err := client.Validate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Invalid API key")
	}
	log.Info().Msg("API key validated")

	sessions := session.New(client, client, cfg.ScanFloor)
	server := api.New(sessions, client)

	handler := api.WithLogging(api.WithCORS(server.Routes()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().
		Int("port", cfg.Port).
		Str("model", cfg.Model).
		Str("image_model", cfg.ImageModel).
		Dur("scan_floor", cfg.ScanFloor).
		Msg("Starting styloglo server")
	fmt.Printf("\n  Styloglo: http://localhost:%d\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
