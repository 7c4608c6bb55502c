package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go.alderamin.dev/dgrpc"
)

var (
	flagDetails    string
	flagState      string
	flagLargeImage string
	flagLargeText  string
	flagClear      bool
)

var setActivityCmd = &cobra.Command{
	Use:   "set-activity",
	Short: "Set or clear the Rich Presence activity shown for this app",
	RunE:  runSetActivity,
}

func init() {
	rootCmd.AddCommand(setActivityCmd)

	setActivityCmd.Flags().StringVar(&flagDetails, "details", "", "activity details line")
	setActivityCmd.Flags().StringVar(&flagState, "state", "", "activity state line")
	setActivityCmd.Flags().StringVar(&flagLargeImage, "large-image", "", "large image asset key")
	setActivityCmd.Flags().StringVar(&flagLargeText, "large-text", "", "large image hover text")
	setActivityCmd.Flags().BoolVar(&flagClear, "clear", false, "clear the current activity instead of setting one")
}

func runSetActivity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, _, teardown, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if flagClear {
		if err := client.ClearActivity(ctx); err != nil {
			return fmt.Errorf("clear activity: %w", err)
		}
		fmt.Println("activity cleared")
		return nil
	}

	activity := &dgrpc.Activity{
		Details: flagDetails,
		State:   flagState,
	}
	if flagLargeImage != "" || flagLargeText != "" {
		activity.Assets = &dgrpc.Assets{
			LargeImage: flagLargeImage,
			LargeText:  flagLargeText,
		}
	}

	if err := client.SetActivity(ctx, activity); err != nil {
		return fmt.Errorf("set activity: %w", err)
	}
	fmt.Println("activity set")
	return nil
}
