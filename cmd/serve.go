package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/gallery"
	"github.com/kozaktomas/face-matcher/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Matcher web server.
The web server provides a browser-based interface for uploading a photo,
matching its faces against the reference database, and managing the
reference database itself.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", constants.DefaultWebPort, "Port to listen on (env WEB_PORT)")
	serveCmd.Flags().String("host", constants.DefaultWebHost, "Host to bind to (env WEB_HOST)")
	serveCmd.Flags().String("db", constants.DefaultDatabasePath, "Default reference database folder (env FACE_DATABASE_PATH)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
	if cmd.Flags().Changed("db") {
		cfg.Matcher.DatabasePath = mustGetString(cmd, "db")
	}

	eng, err := openEngine(cmd, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := eng.Health(healthCtx); err != nil {
		fmt.Printf("Warning: %s engine is not ready: %v\n", eng.Name, err)
	}
	healthCancel()

	if !facematch.DatabaseAvailable(cfg.Matcher.DatabasePath) {
		fmt.Printf("Warning: database path '%s' does not exist yet, it is created on the first upload\n",
			cfg.Matcher.DatabasePath)
	}

	server := web.NewServer(cfg, eng, gallery.NewStore(cfg.Matcher.DatabasePath))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Matcher Web UI on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
