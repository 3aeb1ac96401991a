package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	"github.com/jrsteele09/go-assistant-gateway/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(viper.New(), configFile, port)
		if err != nil {
			return err
		}
		setupLogging(c, os.Stderr)
		displayAppname(cmd.OutOrStdout(), c.GetAppName())

		handler, err := server.New(c)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              c.GetPort(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, srv)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")
}

// loadConfig reads the configuration; a non zero port flag wins over PORT.
func loadConfig(v *viper.Viper, file string, port int) (config.Config, error) {
	c, err := config.Load(v, file)
	if err != nil {
		return config.Config{}, err
	}
	if port > 0 {
		c.Port = strconv.Itoa(port)
	}
	return c, nil
}

// run serves until ctx is cancelled or the listener fails, then shuts the
// server down.
func run(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server.ListenAndServe %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return shutdown(srv)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// setupLogging configures the global logger: readable console output in DEV,
// JSON lines everywhere else.
func setupLogging(c config.Config, out io.Writer) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if c.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("app", c.GetAppName()).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}
