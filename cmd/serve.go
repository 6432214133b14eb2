package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local control center",
	Long: `Start the JSON API for interactive benchmarking: analyze raw pairs,
fan benchmark sessions across configured providers, and browse scored
topologies. Binds to loopback by default.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind address (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	logger := cfg.Log.NewLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{server.WithLogger(logger.With("component", "server"))}

	// The server stays useful without providers (analyze still works),
	// so a bare environment only logs a notice.
	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		logger.Warn("no providers registered, benchmark endpoints disabled", "reason", err)
	} else {
		defer registry.Close()
		opts = append(opts, server.WithRegistry(registry))
	}

	store, auditLog, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		defer auditLog.Close()
		opts = append(opts, server.WithAudit(store, auditLog))
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
