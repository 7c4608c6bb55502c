package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getGuildCmd = &cobra.Command{
	Use:   "get-guild <guild-id>",
	Short: "Fetch a guild by id and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetGuild,
}

var getChannelCmd = &cobra.Command{
	Use:   "get-channel <channel-id>",
	Short: "Fetch a channel by id and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetChannel,
}

func init() {
	rootCmd.AddCommand(getGuildCmd)
	rootCmd.AddCommand(getChannelCmd)
}

func runGetGuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, _, teardown, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	guild, err := client.GetGuild(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get guild: %w", err)
	}
	return printJSON(guild)
}

func runGetChannel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, _, teardown, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	channel, err := client.GetChannel(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	return printJSON(channel)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
