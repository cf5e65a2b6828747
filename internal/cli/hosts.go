package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/portside-app/portside/internal/app"
	"github.com/portside-app/portside/internal/constants"
	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/validation"
)

// newHostsCmd creates the 'hosts' command group.
func newHostsCmd() *cobra.Command {
	hostsCmd := &cobra.Command{
		Use:   "hosts",
		Short: "Manage saved server profiles",
		Long: `Server profile management.

Commands:
  list    - List saved hosts
  add     - Save a new host
  rm      - Delete a host
  update  - Change a saved host
  test    - Test connectivity to a host`,
	}

	hostsCmd.AddCommand(newHostsListCmd())
	hostsCmd.AddCommand(newHostsAddCmd())
	hostsCmd.AddCommand(newHostsRmCmd())
	hostsCmd.AddCommand(newHostsUpdateCmd())
	hostsCmd.AddCommand(newHostsTestCmd())

	return hostsCmd
}

func newHostsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			hosts, err := a.Hosts.GetAll(GetContext())
			if err != nil {
				return fmt.Errorf("failed to list hosts: %w", err)
			}
			if len(hosts) == 0 {
				fmt.Println("No saved hosts. Add one with: portside hosts add")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Address", "Protocol", "Username", "Auth"})
			for _, h := range hosts {
				auth := "password"
				if h.KeyPath != "" {
					auth = "key"
				}
				table.Append([]string{
					strconv.FormatInt(h.ID, 10),
					h.Name,
					h.Addr(),
					string(h.Protocol),
					h.Username,
					auth,
				})
			}
			table.Render()
			return nil
		},
	}
}

func newHostsAddCmd() *cobra.Command {
	var (
		name     string
		addr     string
		port     int
		protocol string
		username string
		keyPath  string
		askPass  bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new host",
		Long: `Save a new server profile.

The password is prompted without echo unless --key is given. Secrets are
encrypted before they reach the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proto, err := models.ParseProtocol(protocol)
			if err != nil {
				return err
			}
			if port == 0 {
				port = proto.DefaultPort()
			}

			host := models.NewHost(name, addr, port, proto, username)
			host.KeyPath = keyPath

			if askPass || keyPath == "" {
				pass, err := readPassword(fmt.Sprintf("Password for %s@%s: ", username, addr))
				if err != nil {
					return err
				}
				host.Password = pass
			}

			if err := validation.ValidateHost(host); err != nil {
				return err
			}

			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			saved, err := a.Hosts.Insert(GetContext(), host)
			if err != nil {
				return fmt.Errorf("failed to save host: %w", err)
			}
			fmt.Printf("Saved host %q (id %d)\n", saved.Name, saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&addr, "addr", "", "Server hostname or IP (required)")
	cmd.Flags().IntVar(&port, "port", 0, "Port (default: 21 for ftp, 22 for sftp)")
	cmd.Flags().StringVar(&protocol, "protocol", "sftp", "Protocol: sftp or ftp")
	cmd.Flags().StringVar(&username, "username", "", "Login username (required)")
	cmd.Flags().StringVar(&keyPath, "key", "", "Absolute path to a private key (sftp)")
	cmd.Flags().BoolVar(&askPass, "password", false, "Prompt for a password even when --key is set")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("addr")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newHostsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <host>",
		Short: "Delete a saved host and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			host, err := resolveHost(GetContext(), a, args[0])
			if err != nil {
				return err
			}
			if err := a.Hosts.Delete(GetContext(), host.ID); err != nil {
				return fmt.Errorf("failed to delete host: %w", err)
			}
			fmt.Printf("Deleted host %q\n", host.Name)
			return nil
		},
	}
}

func newHostsUpdateCmd() *cobra.Command {
	var (
		name     string
		addr     string
		port     int
		protocol string
		username string
		keyPath  string
		askPass  bool
	)

	cmd := &cobra.Command{
		Use:   "update <host>",
		Short: "Change a saved host",
		Long: `Change fields of a saved host. Only the given flags are changed;
secrets left blank keep their stored values.`,
		Args: cobra.ExactArgs(1),
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

			if name != "" {
				host.Name = name
			}
			if addr != "" {
				host.Host = addr
			}
			if port != 0 {
				host.Port = port
			}
			if protocol != "" {
				proto, err := models.ParseProtocol(protocol)
				if err != nil {
					return err
				}
				host.Protocol = proto
			}
			if username != "" {
				host.Username = username
			}
			if cmd.Flags().Changed("key") {
				host.KeyPath = keyPath
			} else {
				// Blank means "keep stored" for the store's update path.
				host.KeyPath = ""
			}
			host.Password = ""
			if askPass {
				pass, err := readPassword(fmt.Sprintf("New password for %s@%s: ", host.Username, host.Host))
				if err != nil {
					return err
				}
				host.Password = pass
			}

			if err := validation.ValidateHost(&host); err != nil {
				return err
			}
			if err := a.Hosts.Update(ctx, &host); err != nil {
				return fmt.Errorf("failed to update host: %w", err)
			}
			fmt.Printf("Updated host %q\n", host.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New profile name")
	cmd.Flags().StringVar(&addr, "addr", "", "New hostname or IP")
	cmd.Flags().IntVar(&port, "port", 0, "New port")
	cmd.Flags().StringVar(&protocol, "protocol", "", "New protocol: sftp or ftp")
	cmd.Flags().StringVar(&username, "username", "", "New username")
	cmd.Flags().StringVar(&keyPath, "key", "", "New private key path (empty clears it)")
	cmd.Flags().BoolVar(&askPass, "password", false, "Prompt for a new password")

	return cmd
}

func newHostsTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <host>",
		Short: "Test connectivity to a saved host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			host, err := resolveHost(GetContext(), a, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(GetContext(), constants.TestConnectionTimeout)
			defer cancel()

			fmt.Printf("Testing %s (%s)... ", host.Name, host.Addr())
			if err := a.Conns.TestConnection(ctx, host); err != nil {
				fmt.Println("FAILED")
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

// resolveHost accepts a numeric ID or a profile name.
func resolveHost(ctx context.Context, a *app.App, ref string) (models.Host, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return a.Hosts.GetByID(ctx, id)
	}
	hosts, err := a.Hosts.GetAll(ctx)
	if err != nil {
		return models.Host{}, err
	}
	for _, h := range hosts {
		if h.Name == ref {
			return h, nil
		}
	}
	return models.Host{}, fmt.Errorf("no host named %q", ref)
}

// readPassword prompts on stderr and reads without echo when stdin is a
// terminal; otherwise it falls back to a plain line read (piped input).
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
