package cli

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/portside-app/portside/internal/config"
	"github.com/portside-app/portside/internal/localfs"
	"github.com/portside-app/portside/internal/models"
	utilstrings "github.com/portside-app/portside/internal/util/strings"
)

// newLsCmd creates the 'ls' command for remote listings.
func newLsCmd() *cobra.Command {
	var showHidden bool

	cmd := &cobra.Command{
		Use:   "ls <host> [path]",
		Short: "List a remote directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			showHidden = effectiveShowHidden(cmd.Flags().Changed("all"), showHidden, a.Config.UI.ShowHidden)

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

			entries, err := client.List(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", path, err)
			}
			if !showHidden {
				entries = dropHidden(entries)
			}
			models.SortEntries(entries)
			renderListing(entries)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showHidden, "all", "a", false, "Include hidden entries")
	return cmd
}

// newLlsCmd creates the 'lls' command for local listings.
func newLlsCmd() *cobra.Command {
	var showHidden bool

	cmd := &cobra.Command{
		Use:   "lls [path]",
		Short: "List a local directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			if cfg, cfgErr := config.LoadOrDefault(cfgFile); cfgErr == nil {
				showHidden = effectiveShowHidden(cmd.Flags().Changed("all"), showHidden, cfg.UI.ShowHidden)
			}

			entries, err := localfs.ListEntries(path, showHidden)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", path, err)
			}
			renderListing(entries)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showHidden, "all", "a", false, "Include hidden entries")
	return cmd
}

// effectiveShowHidden prefers an explicit --all flag over the configured
// default.
func effectiveShowHidden(flagSet, flagValue, configured bool) bool {
	if flagSet {
		return flagValue
	}
	return configured
}

func dropHidden(entries []models.FileEntry) []models.FileEntry {
	kept := entries[:0]
	for _, e := range entries {
		if len(e.Name) > 0 && e.Name[0] == '.' {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func renderListing(entries []models.FileEntry) {
	if len(entries) == 0 {
		fmt.Println("(empty)")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Type", "Name", "Size", "Modified"})
	for _, e := range entries {
		kind := "file"
		size := utilstrings.FormatBytes(e.Size)
		if e.IsDir {
			kind = "dir"
			size = "-"
		}
		modified := ""
		if !e.Modified.IsZero() {
			modified = e.Modified.Format("2006-01-02 15:04")
		}
		table.Append([]string{kind, e.Name, size, modified})
	}
	table.Render()
}
