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

	"site-cms/config"
	"site-cms/logger"
	"site-cms/models"
	"site-cms/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var envFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "site-cms: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "site-cms",
		Short:        "Marketing site CMS with moderated external submissions",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the process environment")
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd())
	return cmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(envFile)
}

func newServeCmd() *cobra.Command {
	var store string
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			if migrate && store == storePostgres {
				if err := runMigrations(cfg); err != nil {
					return err
				}
			}
			repos, err := openRepositories(cfg, store)
			if err != nil {
				return err
			}
			if err := seedAdmin(ctx, cfg, repos, log); err != nil {
				return err
			}
			router, err := buildRouter(ctx, cfg, repos, log)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithField("port", cfg.Port).WithField("store", store).Info("Server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				log.Info("Server shutting down")
				return server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&store, "store", storePostgres, "Persistence backend: postgres or memory")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run database migrations before serving")
	return cmd
}

func runMigrations(cfg *config.Config) error {
	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	return config.AutoMigrate(db)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := runMigrations(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	var username, email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account, typically the first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repos, err := openRepositories(cfg, storePostgres)
			if err != nil {
				return err
			}

			auth := services.NewAuthService(repos.Users, cfg.JWT())
			res, err := auth.Register(cmd.Context(), models.RegisterRequest{
				Username: username,
				Email:    email,
				Password: password,
				Role:     models.UserRole(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", res.User.Role, res.User.Username, res.User.ID)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "Username")
	create.Flags().StringVar(&email, "email", "", "Email address")
	create.Flags().StringVar(&password, "password", "", "Password")
	create.Flags().StringVar(&role, "role", string(models.RoleAdmin), "Role: staff, editor or admin")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
