package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/mediagate/internal/media"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().Bool("json", false, "print the media set as JSON")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a URL through the downloader API and print its variants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		resolver := media.NewResolver(cfg.Downloader.Endpoint, cfg.Downloader.APIKey)
		set, err := resolver.Resolve(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("resolve %s: %w", args[0], err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		}

		fmt.Fprintln(os.Stdout, media.Caption(set))
		if set.ThumbnailURL != "" {
			fmt.Fprintf(os.Stdout, "Thumbnail: %s\n", set.ThumbnailURL)
		}
		fmt.Fprintln(os.Stdout)
		for i, v := range set.Variants {
			fmt.Fprintf(os.Stdout, "[%d] %s  %s\n", i, media.VariantLabel(v), v.SourceURL)
		}
		return nil
	},
}
