// Portside - dual-pane FTP/SFTP transfer client.
package main

import (
	"os"

	"github.com/portside-app/portside/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
