package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/database"
	"apex-dashboard/internal/features/dashboard"
	"apex-dashboard/internal/features/settings"
	"apex-dashboard/internal/features/vault"
	"apex-dashboard/internal/features/widget"
	"apex-dashboard/internal/logger"
	"apex-dashboard/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session is a headless dashboard over the configured store.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	kv      database.KVStore
	store   settings.ConfigStore
	service dashboard.DashboardService
}

// storeCloser is implemented by stores that hold a connection.
type storeCloser interface {
	Close(ctx context.Context) error
}

func (s *session) close(ctx context.Context) {
	s.service.Shutdown()
	if c, ok := s.kv.(storeCloser); ok {
		if err := c.Close(ctx); err != nil {
			s.log.Warn("closing store", zap.Error(err))
		}
	}
	_ = s.log.Sync()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg, nil)
	if err != nil {
		return nil, err
	}

	kv, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	return newSession(ctx, cfg, log, kv), nil
}

func newSession(ctx context.Context, cfg *config.Config, log *zap.Logger, kv database.KVStore) *session {
	store := settings.NewConfigStore(
		settings.NewSettingsRepository(kv, cfg),
		vault.NewVaultService(kv, cfg, log),
		cfg, log)
	svc := dashboard.NewDashboardService(store, widget.NewDefaultRegistry(), widget.NewCronScheduler(log), dashboard.NewHub(), cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Warn("dashboard loaded with errors", zap.Error(err))
	}
	return &session{cfg: cfg, log: log, kv: kv, store: store, service: svc}
}

func run(fn func(ctx context.Context, s *session) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.close(context.WithoutCancel(ctx))
		return fn(ctx, s)
	}
}

// NewShowCommand prints the dashboard state and storage status
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active dashboard and storage status",
		RunE: run(func(ctx context.Context, s *session) error {
			out := struct {
				State   dashboard.State         `json:"state"`
				Storage settings.StorageStatus `json:"storage"`
			}{s.service.State(), s.store.Status(ctx)}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}),
	}
}

// NewExportCommand writes the plaintext config or a workbook
func NewExportCommand() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the config as JSON or an Excel workbook",
		RunE: run(func(ctx context.Context, s *session) error {
			var (
				name string
				data []byte
				err  error
			)
			switch format {
			case "json":
				name, data, err = s.service.ExportConfig()
			case "xlsx":
				name, data, err = s.service.ExportWorkbook()
			default:
				return fmt.Errorf("unknown format %q (json or xlsx)", format)
			}
			if err != nil {
				return err
			}

			if out == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&format, "format", "json", "Export format: json or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout (default: suggested filename)")
	return cmd
}

// NewImportCommand replaces the stored config with a JSON document
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored config with an exported document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, s *session) error {
				if err := s.service.ImportConfig(ctx, raw); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "imported %s, active dashboard %s\n", args[0], s.service.ActiveDashboardID())
				return nil
			})(cmd, args)
		},
	}
}

// NewEncryptionCommand toggles at-rest encryption
func NewEncryptionCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "encryption <on|off>",
		Short:     "Turn at-rest encryption of the config on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			return run(func(ctx context.Context, s *session) error {
				if err := s.service.SetEncryption(ctx, enabled); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "encryption %s\n", args[0])
				return nil
			})(cmd, args)
		},
	}
}

// NewTokenCommand issues a bearer token for the API
func NewTokenCommand() *cobra.Command {
	var (
		user  string
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			utils.SetSecret(cfg.JWTSecret)
			token, err := utils.GenerateToken(user, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "dashctl", "Subject user id")
	cmd.Flags().StringSliceVar(&roles, "role", []string{"admin"}, "Roles to embed (admin, viewer)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
