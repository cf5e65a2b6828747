package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/portside-app/portside/internal/models"
)

// newBookmarksCmd creates the 'bookmarks' command group.
func newBookmarksCmd() *cobra.Command {
	bookmarksCmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Manage directory bookmarks",
		Long: `Directory bookmark management.

A bookmark pairs a remote and/or local directory on a saved host so both
panes can jump back to a saved location.

Commands:
  list   - List bookmarks
  add    - Save a bookmark
  rm     - Delete a bookmark
  touch  - Mark a bookmark as just used`,
	}

	bookmarksCmd.AddCommand(newBookmarksListCmd())
	bookmarksCmd.AddCommand(newBookmarksAddCmd())
	bookmarksCmd.AddCommand(newBookmarksRmCmd())
	bookmarksCmd.AddCommand(newBookmarksTouchCmd())

	return bookmarksCmd
}

func newBookmarksListCmd() *cobra.Command {
	var hostRef string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx := GetContext()
			var bookmarks []models.DirectoryBookmark
			if hostRef != "" {
				host, err := resolveHost(ctx, a, hostRef)
				if err != nil {
					return err
				}
				bookmarks, err = a.Bookmarks.GetByHost(ctx, host.ID)
				if err != nil {
					return fmt.Errorf("failed to list bookmarks: %w", err)
				}
			} else {
				bookmarks, err = a.Bookmarks.GetAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list bookmarks: %w", err)
				}
			}

			if len(bookmarks) == 0 {
				fmt.Println("No bookmarks.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Host", "Label", "Remote Dir", "Local Dir", "Last Used"})
			for _, bm := range bookmarks {
				table.Append([]string{
					strconv.FormatInt(bm.ID, 10),
					strconv.FormatInt(bm.HostID, 10),
					bm.Label,
					bm.RemoteDir,
					bm.LocalDir,
					bm.LastUsedAt,
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&hostRef, "host", "", "Only bookmarks for this host (id or name)")
	return cmd
}

func newBookmarksAddCmd() *cobra.Command {
	var (
		label     string
		remoteDir string
		localDir  string
	)

	cmd := &cobra.Command{
		Use:   "add <host>",
		Short: "Save a bookmark on a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteDir == "" && localDir == "" {
				return fmt.Errorf("at least one of --remote or --local is required")
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx := GetContext()
			host, err := resolveHost(ctx, a, args[0])
			if err != nil {
				return err
			}

			bm := models.NewDirectoryBookmark(host.ID, label)
			bm.RemoteDir = remoteDir
			bm.LocalDir = localDir

			saved, err := a.Bookmarks.Insert(ctx, bm)
			if err != nil {
				return fmt.Errorf("failed to save bookmark: %w", err)
			}
			fmt.Printf("Saved bookmark %q (id %d)\n", saved.Label, saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Bookmark label (required)")
	cmd.Flags().StringVar(&remoteDir, "remote", "", "Remote directory")
	cmd.Flags().StringVar(&localDir, "local", "", "Local directory")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func newBookmarksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bookmark id %q", args[0])
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Bookmarks.Delete(GetContext(), id); err != nil {
				return fmt.Errorf("failed to delete bookmark: %w", err)
			}
			fmt.Printf("Deleted bookmark %d\n", id)
			return nil
		},
	}
}

func newBookmarksTouchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch <id>",
		Short: "Mark a bookmark as just used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bookmark id %q", args[0])
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Bookmarks.Touch(GetContext(), id); err != nil {
				return fmt.Errorf("failed to touch bookmark: %w", err)
			}
			fmt.Printf("Touched bookmark %d\n", id)
			return nil
		},
	}
}
