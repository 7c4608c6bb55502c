package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the local Discord client and confirm the handshake",
	Long: `Discovers the local Discord IPC endpoint, performs the handshake,
and reports the READY event. Useful as a smoke test for --app-id and the
running Discord client before driving any other subcommand.`,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, _, teardown, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	fmt.Println("connected: handshake completed, READY received")
	return nil
}
