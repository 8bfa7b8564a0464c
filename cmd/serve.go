package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/config"
	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/db"
	"github.com/addestra-labs/addestra/internal/llm"
	"github.com/addestra-labs/addestra/internal/memory"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/server"
	"github.com/addestra-labs/addestra/internal/stats"
	"github.com/addestra-labs/addestra/internal/training"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the training backend server",
	Long:  `Starts the addestra HTTP server: training conversations, corrections, rules and the dashboard API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		mem, err := createMemoryFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: correction memory disabled: %v\n", err)
			mem = nil
		}

		tokens := auth.NewStore(database)
		srv := server.New(server.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, database, tokens)

		registerAllRoutes(srv, database, cfg, provider, mem)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			if mem != nil && cfg.MemoryDir != "" {
				if err := mem.Persist(cfg.MemoryDir); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: could not persist correction memory: %v\n", err)
				}
			}
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "addestra v%s starting on %s:%d\n", Version, cfg.Server.Host, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", cfg.DatabasePath)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", cfg.Provider, cfg.Model)
		if mem != nil {
			fmt.Fprintf(os.Stderr, "  Corrections indexed: %d\n", mem.Count())
		}

		return srv.Start()
	},
}

// registerAllRoutes wires up all feature routes on the authenticated router.
func registerAllRoutes(srv *server.Server, database *db.DB, cfg *config.Config, provider llm.Provider, mem *memory.Store) {
	r := srv.Router()

	convStore := training.NewStore(database)
	corrStore := corrections.NewStore(database)
	ruleStore := rules.NewStore(database)

	processor := training.NewProcessor(database, convStore, corrStore, ruleStore, provider, mem,
		training.ProcessorConfig{
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	training.RegisterRoutes(r, convStore, processor)

	corrections.RegisterRoutes(r, corrStore)
	rules.RegisterRoutes(r, ruleStore)
	stats.RegisterRoutes(r, stats.NewService(convStore, corrStore, ruleStore))
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override the configured HTTP port")
	rootCmd.AddCommand(serveCmd)
}
