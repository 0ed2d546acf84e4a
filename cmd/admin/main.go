package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"scms/backend/internal/auth"
	"scms/backend/internal/complaint"
	"scms/backend/internal/config"
	"scms/backend/internal/hub"
	"scms/backend/internal/localization"
	"scms/backend/internal/logging"
	"scms/backend/internal/models"
	"scms/backend/internal/notification"
	"scms/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// cli holds what every command needs. Tests fill it in directly.
type cli struct {
	complaints *complaint.Service
	admin      auth.Identity
	jsonOutput bool
	closers    []func() error
}

// redisPublisher forwards notifications to running servers through the hub channel.
type redisPublisher struct {
	rdb     *redis.Client
	channel string
}

func (p redisPublisher) Publish(ctx context.Context, n models.Notification) {
	event := models.NotificationEvent{Type: "notification", UserID: n.UserID, Notification: n}
	if err := hub.PublishEvent(ctx, p.rdb, p.channel, event); err != nil {
		slog.Warn("failed to publish notification", "user_id", n.UserID, "err", err)
	}
}

func (a *cli) setup(ctx context.Context) error {
	if a.complaints != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	logging.InitWriter(os.Stderr, cfg.LogLevel)

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStore)

	var publisher notification.Publisher
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		a.closers = append(a.closers, rdb.Close)
		publisher = redisPublisher{rdb: rdb, channel: cfg.Redis.Channel}
	}
	messages, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		return err
	}

	// Images are never uploaded from the CLI.
	a.complaints = complaint.NewService(store, nil, notification.NewService(store, messages, publisher))
	a.complaints.Staff = cfg.Staff
	a.complaints.Buildings = cfg.Buildings
	a.admin = auth.AdminAccount{Username: cfg.Auth.AdminUsername}.Identity()
	return nil
}

func (a *cli) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
}

func newRootCmd(a *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administer student complaints from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		a.statsCmd(),
		a.listCmd(),
		a.statusCmd(),
		a.assignCmd(),
		a.commentCmd(),
		a.staffCmd(),
	)
	return root
}

func (a *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show complaint totals by status and category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.complaints.Stats(cmd.Context(), a.admin)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total: %d\nPending: %d\nIn Progress: %d\nResolved: %d\n",
				stats.Total, stats.Pending, stats.InProgress, stats.Resolved)
			for category, n := range stats.ByCategory {
				fmt.Fprintf(out, "  %s: %d\n", category, n)
			}
			return nil
		},
	}
}

func (a *cli) listCmd() *cobra.Command {
	var filter complaint.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.complaints.List(cmd.Context(), a.admin, filter)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTICKET\tSTATUS\tCATEGORY\tSTUDENT\tASSIGNED")
			for _, c := range list {
				assigned := "-"
				if c.AssignedTo != nil {
					assigned = *c.AssignedTo
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.TicketID, c.Status, c.Category, c.Student.Email, assigned)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Status, "status", "", "Only complaints with this status")
	cmd.Flags().StringVar(&filter.Category, "category", "", "Only complaints in this category")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Match ticket id, student name or email")
	return cmd
}

func (a *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <complaint_id> <status>",
		Short: "Change the status of a complaint",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.complaints.UpdateStatus(cmd.Context(), a.admin, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.printComplaint(cmd.OutOrStdout(), c)
		},
	}
}

func (a *cli) assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <complaint_id> <staff name>",
		Short: "Assign a complaint to a staff member",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.complaints.Assign(cmd.Context(), a.admin, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.printComplaint(cmd.OutOrStdout(), c)
		},
	}
}

func (a *cli) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <complaint_id> <text>",
		Short: "Add an admin comment to a complaint",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.complaints.AddComment(cmd.Context(), a.admin, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.printComplaint(cmd.OutOrStdout(), c)
		},
	}
}

func (a *cli) staffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "staff",
		Short: "List staff members complaints can be assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			staff, err := a.complaints.StaffRoster(a.admin)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), staff)
			}
			for _, name := range staff {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (a *cli) printComplaint(out io.Writer, c *models.Complaint) error {
	if a.jsonOutput {
		return writeJSON(out, c)
	}
	assigned := "-"
	if c.AssignedTo != nil {
		assigned = *c.AssignedTo
	}
	_, err := fmt.Fprintf(out, "%s  %s  assigned to %s\n", c.TicketID, c.Status, assigned)
	return err
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid complaint id %q", s)
	}
	return uint(id), nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	a := &cli{}
	defer a.close()
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		a.close()
		os.Exit(1)
	}
}
