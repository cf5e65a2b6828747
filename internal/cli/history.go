package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/portside-app/portside/internal/models"
	utilstrings "github.com/portside-app/portside/internal/util/strings"
)

// newHistoryCmd creates the 'history' command group.
func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage transfer history",
		Long: `Transfer history commands.

Commands:
  list   - List past transfers
  clear  - Delete history rows
  retry  - Re-run a failed or cancelled transfer`,
	}

	historyCmd.AddCommand(newHistoryListCmd())
	historyCmd.AddCommand(newHistoryClearCmd())
	historyCmd.AddCommand(newHistoryRetryCmd())

	return historyCmd
}

func newHistoryListCmd() *cobra.Command {
	var hostRef string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past transfers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx := GetContext()
			var records []models.HistoryRecord
			if hostRef != "" {
				host, err := resolveHost(ctx, a, hostRef)
				if err != nil {
					return err
				}
				records, err = a.History.GetByHost(ctx, host.ID)
				if err != nil {
					return fmt.Errorf("failed to list history: %w", err)
				}
			} else {
				records, err = a.History.GetAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list history: %w", err)
				}
			}

			if len(records) == 0 {
				fmt.Println("No transfer history.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Direction", "File", "Size", "Status", "Started", "Error"})
			for _, rec := range records {
				table.Append([]string{
					strconv.FormatInt(rec.ID, 10),
					string(rec.Direction),
					rec.Filename,
					utilstrings.FormatBytes(rec.FileSize),
					string(rec.Status),
					rec.StartedAt,
					rec.ErrorMessage,
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&hostRef, "host", "", "Only history for this host (id or name)")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var hostRef string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete transfer history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx := GetContext()
			if hostRef != "" {
				host, err := resolveHost(ctx, a, hostRef)
				if err != nil {
					return err
				}
				if err := a.History.ClearByHost(ctx, host.ID); err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				fmt.Printf("Cleared history for host %q\n", host.Name)
				return nil
			}

			if err := a.Registry.ClearHistory(ctx); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Println("Cleared transfer history")
			return nil
		},
	}

	cmd.Flags().StringVar(&hostRef, "host", "", "Only clear this host's history (id or name)")
	return cmd
}

func newHistoryRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <history-id>",
		Short: "Re-run a past transfer under a fresh transfer ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			historyID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx := GetContext()
			rec, err := a.History.GetByID(ctx, historyID)
			if err != nil {
				return fmt.Errorf("no history row %d: %w", historyID, err)
			}
			host, err := a.Hosts.GetByID(ctx, rec.HostID)
			if err != nil {
				return err
			}
			if err := a.Conns.Connect(ctx, host); err != nil {
				return fmt.Errorf("failed to connect to %s: %w", host.Name, err)
			}

			sub := a.Bus.SubscribeAll()
			defer a.Bus.UnsubscribeAll(sub)

			transferID, err := a.Registry.RetryTransfer(ctx, historyID)
			if err != nil {
				return fmt.Errorf("failed to retry transfer: %w", err)
			}

			destDir := rec.RemotePath
			if rec.Direction == models.DirectionDownload {
				destDir = rec.LocalPath
			}
			if failed := followTransfers(ctx, a, sub, []string{transferID}, rec.Direction, destDir); failed > 0 {
				return fmt.Errorf("retry did not complete")
			}
			return nil
		},
	}
}

// newCancelCmd creates the 'cancel' command.
func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <transfer-id>",
		Short: "Cancel an in-flight transfer",
		Long: `Request cancellation of an in-flight transfer by its transfer ID.

Cancellation is asynchronous: the transfer stops once the engine observes
the request and records a cancelled history row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Registry.CancelTransfer(args[0]); err != nil {
				return fmt.Errorf("failed to cancel transfer: %w", err)
			}
			fmt.Printf("Requested cancellation of %s\n", args[0])
			return nil
		},
	}
}
