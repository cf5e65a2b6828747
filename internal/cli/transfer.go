package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/portside-app/portside/internal/app"
	"github.com/portside-app/portside/internal/events"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/progress"
	"github.com/portside-app/portside/internal/transfer"
)

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "upload <host> <paths...>",
		Short: "Upload local files and directories to a host",
		Long: `Upload a selection of local files and directories.

Directories are transferred recursively with existing remote files
overwritten. For single files that collide with an existing remote file you
are asked to overwrite, skip, or rename; "all" applies overwrite to the
rest of the batch.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := a.Conns.Connect(ctx, host); err != nil {
				return fmt.Errorf("failed to connect to %s: %w", host.Name, err)
			}

			selection, err := localSelection(args[1:])
			if err != nil {
				return err
			}

			return runBatch(ctx, a, models.DirectionUpload, destDir, func() (*transfer.BatchSummary, error) {
				return a.Coordinator.Upload(ctx, host.ID, selection, destDir)
			})
		},
	}

	cmd.Flags().StringVar(&destDir, "to", "/", "Destination directory on the host")
	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "download <host> <remote-paths...>",
		Short: "Download remote files and directories from a host",
		Long: `Download a selection of remote files and directories.

Directories are transferred recursively with existing local files
overwritten. For single files that collide with an existing local file you
are asked to overwrite, skip, or rename; "all" applies overwrite to the
rest of the batch.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := a.Conns.Connect(ctx, host); err != nil {
				return fmt.Errorf("failed to connect to %s: %w", host.Name, err)
			}
			client, err := a.Conns.Get(host.ID)
			if err != nil {
				return err
			}

			selection := make([]models.FileEntry, 0, len(args)-1)
			for _, path := range args[1:] {
				entry, err := client.Stat(ctx, path)
				if err != nil {
					return fmt.Errorf("failed to stat %s: %w", path, err)
				}
				selection = append(selection, entry)
			}

			if destDir == "" {
				destDir = "."
			}
			local, err := filepath.Abs(destDir)
			if err != nil {
				return err
			}

			return runBatch(ctx, a, models.DirectionDownload, local, func() (*transfer.BatchSummary, error) {
				return a.Coordinator.Download(ctx, host.ID, selection, local)
			})
		},
	}

	cmd.Flags().StringVar(&destDir, "to", ".", "Destination directory on this machine")
	return cmd
}

// localSelection stats each path into a FileEntry the coordinator accepts.
func localSelection(paths []string) ([]models.FileEntry, error) {
	selection := make([]models.FileEntry, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		selection = append(selection, models.FileEntry{
			Name:     filepath.Base(abs),
			Path:     abs,
			IsDir:    info.IsDir(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	return selection, nil
}

// runBatch dispatches one batch through the coordinator and then follows
// engine events until every dispatched transfer reaches a terminal state.
// The bus subscription is taken before dispatch so no event is missed; the
// coordinator's sequential conflict prompts finish before any bar is drawn.
func runBatch(ctx context.Context, a *app.App, direction models.Direction, destDir string, dispatch func() (*transfer.BatchSummary, error)) error {
	a.Gate.SetOnConflict(func(pc transfer.PendingConflict) {
		promptConflict(a.Gate, pc)
	})

	sub := a.Bus.SubscribeAll()
	defer a.Bus.UnsubscribeAll(sub)

	summary, err := dispatch()
	if err != nil {
		return err
	}

	if summary.Skipped > 0 {
		fmt.Printf("Skipped %d existing file(s)\n", summary.Skipped)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", failure.Name, failure.Err)
	}
	if len(summary.TransferIDs) == 0 {
		fmt.Println("Nothing to transfer.")
		return nil
	}

	failed := followTransfers(ctx, a, sub, summary.TransferIDs, direction, destDir)

	done := len(summary.TransferIDs) - failed
	fmt.Printf("%d of %d transfer(s) finished", done, len(summary.TransferIDs))
	if failed > 0 {
		fmt.Printf(", %d failed or cancelled", failed)
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d transfer(s) did not complete", failed)
	}
	return nil
}

// followTransfers renders progress bars for the given transfer IDs until
// all of them terminate. Ctrl+C cancels the outstanding transfers and waits
// for their cancelled events. Returns the count of failed or cancelled
// transfers.
func followTransfers(ctx context.Context, a *app.App, sub <-chan events.Event, ids []string, direction models.Direction, destDir string) int {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	ui := progress.NewBatchUI(direction, len(ids))
	failed := 0
	done := ctx.Done()

	for len(pending) > 0 {
		select {
		case <-done:
			// Request cancellation once; terminal events arrive via sub.
			done = nil
			for id := range pending {
				_ = a.Registry.CancelTransfer(id)
			}

		case event, ok := <-sub:
			if !ok {
				return failed + len(pending)
			}
			te, isTransfer := event.(*events.TransferEvent)
			if !isTransfer || !pending[te.TransferID] {
				continue
			}

			bar, seen := ui.Bar(te.TransferID)
			if !seen {
				bar = ui.AddFileBar(te.TransferID, te.Filename, destDir, te.TotalBytes)
			}

			switch te.Type() {
			case events.EventTransferProgress:
				bar.UpdateBytes(te.TransferredBytes)

			case events.EventTransferCompleted:
				bar.Complete(nil)
				delete(pending, te.TransferID)

			case events.EventTransferFailed:
				err := te.Error
				if err == nil {
					err = fmt.Errorf("transfer failed")
				}
				bar.Complete(err)
				delete(pending, te.TransferID)
				failed++

			case events.EventTransferCancelled:
				bar.Complete(fmt.Errorf("cancelled"))
				delete(pending, te.TransferID)
				failed++
			}
		}
	}

	ui.Wait()
	return failed
}
