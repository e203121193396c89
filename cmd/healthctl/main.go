package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yusufkecer/health-data-client/internal/config"
	"github.com/yusufkecer/health-data-client/internal/db"
	"github.com/yusufkecer/health-data-client/internal/domain"
	"github.com/yusufkecer/health-data-client/internal/healthdata"
	"github.com/yusufkecer/health-data-client/internal/middleware"
	"github.com/yusufkecer/health-data-client/internal/repository"
	"github.com/yusufkecer/health-data-client/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type clientFlags struct {
	url   string
	user  string
	token string
}

func (f *clientFlags) client(cfg *config.Config) (*healthdata.Client, error) {
	if f.user == "" {
		return nil, errors.New("a user id is required (--user or HEALTHDATA_USER_ID)")
	}
	return healthdata.New(f.url, f.user, f.token,
		healthdata.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout})), nil
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	flags := &clientFlags{}

	root := &cobra.Command{
		Use:           "healthctl",
		Short:         "Read health data from the realtime database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.url, "url", cfg.HealthDataURL, "database base URL")
	root.PersistentFlags().StringVar(&flags.user, "user", cfg.UserID, "user id to read")
	root.PersistentFlags().StringVar(&flags.token, "token", cfg.AuthToken, "database auth token")

	root.AddCommand(newRealtimeCmd(cfg, flags))
	root.AddCommand(newSummaryCmd(cfg, flags))
	root.AddCommand(newHistoryCmd(cfg, flags))
	root.AddCommand(newPingCmd(cfg, flags))
	root.AddCommand(newArchiveCmd(cfg, flags))
	root.AddCommand(newArchivedCmd(cfg, flags))
	root.AddCommand(newTokenCmd(cfg, flags))
	return root
}

func newRealtimeCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "realtime <metric>",
		Short: "Print the latest readings of a metric, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c.BestEffort().RealtimeMetric(cmd.Context(), args[0], limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1, "number of recent readings")
	return cmd
}

func newSummaryCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [YYYY-MM-DD]",
		Short: "Print the daily summary (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client(cfg)
			if err != nil {
				return err
			}
			date := ""
			if len(args) == 1 {
				if _, err := time.Parse(domain.DateLayout, args[0]); err != nil {
					return fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[0])
				}
				date = args[0]
			}
			return printJSON(cmd.OutOrStdout(), c.BestEffort().DailySummary(cmd.Context(), date))
		},
	}
}

func newHistoryCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print every daily summary (can be large)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.client(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c.BestEffort().AggregatedHistory(cmd.Context()))
		},
	}
}

func newPingCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database answers and accepts the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := healthdata.New(flags.url, flags.user, flags.token,
				healthdata.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}))
			if err := c.Ping(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
}

func newArchiveCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	var (
		metricList string
		limit      int
		skipDaily  bool
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Copy daily summaries and recent readings into the MySQL archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.client(cfg)
			if err != nil {
				return err
			}
			database, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.RunMigrations(cmd.Context(), database); err != nil {
				return err
			}

			svc := service.NewArchiveService(flags.user, c,
				repository.NewSummaryRepository(database),
				repository.NewSampleRepository(database))
			return runArchive(cmd.Context(), cmd.OutOrStdout(), svc, splitList(metricList), limit, skipDaily)
		},
	}
	cmd.Flags().StringVar(&metricList, "metrics", strings.Join(domain.RealtimeMetrics, ","), "comma separated realtime metrics")
	cmd.Flags().IntVar(&limit, "limit", 100, "readings per metric")
	cmd.Flags().BoolVar(&skipDaily, "skip-daily", false, "do not archive daily summaries")
	return cmd
}

func runArchive(ctx context.Context, out io.Writer, svc *service.ArchiveService, metrics []string, limit int, skipDaily bool) error {
	if !skipDaily {
		days, err := svc.ArchiveHistory(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "daily summaries: %d\n", days)
	}
	if len(metrics) > 0 {
		n, err := svc.ArchiveRealtime(ctx, metrics, limit)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "new readings: %d\n", n)
	}
	return nil
}

func newArchivedCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	var (
		metric string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "archived [YYYY-MM-DD]",
		Short: "Print archived daily summaries, or readings with --metric, from MySQL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.user == "" {
				return errors.New("a user id is required (--user or HEALTHDATA_USER_ID)")
			}
			if metric != "" && len(args) == 1 {
				return errors.New("a date cannot be combined with --metric")
			}
			database, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			date := ""
			if len(args) == 1 {
				date = args[0]
			}
			return printArchived(cmd.Context(), cmd.OutOrStdout(), database, flags.user, date, metric, limit)
		},
	}
	cmd.Flags().StringVar(&metric, "metric", "", "print archived readings of this metric instead of summaries")
	cmd.Flags().IntVar(&limit, "limit", 10, "readings to print with --metric")
	return cmd
}

// printArchived prints archived readings of metric when it is set, otherwise
// the summary for date, otherwise every archived summary.
func printArchived(ctx context.Context, out io.Writer, database *sql.DB, userID, date, metric string, limit int) error {
	if metric != "" {
		if limit < 1 {
			limit = 1
		}
		samples, err := repository.NewSampleRepository(database).Latest(ctx, userID, metric, limit)
		if err != nil {
			return err
		}
		return printJSON(out, samples)
	}

	repo := repository.NewSummaryRepository(database)
	if date != "" {
		s, err := repo.GetByDate(ctx, userID, date)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("no archived summary for %s", date)
		}
		return printJSON(out, s)
	}
	history, err := repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return printJSON(out, history)
}

func newTokenCmd(cfg *config.Config, flags *clientFlags) *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a gateway access token for --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("a signing secret is required (--secret or JWT_SECRET)")
			}
			token, err := middleware.GenerateToken(flags.user, secret, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", cfg.JWTSecret, "gateway JWT secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
