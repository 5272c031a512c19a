package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/zenimport/internal/admin"
	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/pages"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTML upload form",
	Long: `Serve runs the import form over HTTP. Uploaded pages are converted and
stored in the page database, and the stored pages are readable as JSON.

Examples:
  zenimport serve --listen :8080 --db pages.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen", "127.0.0.1:8080", "address to listen on")
	flags.String("db", defaultDBPath, "page database path")
	flags.String("author", "", "author recorded on imported pages (default admin)")

	_ = viper.BindPFlag("listen", flags.Lookup("listen"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The db and author flags are shared with import; bind the ones of the
	// command actually running.
	_ = viper.BindPFlag("db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("author", cmd.Flags().Lookup("author"))

	im, err := newImporter()
	if err != nil {
		return err
	}
	reader, err := newReader()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := pages.NewService(st, im, pages.Config{DefaultAuthor: viper.GetString("author")})
	srv := &http.Server{
		Addr:              viper.GetString("listen"),
		Handler:           admin.New(svc, st, reader, im.Registry()).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "db", viper.GetString("db"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
