package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mediagate/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("mediagate setup")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Telegram.Token = promptSecret(scanner, "Telegram bot token", cfg.Telegram.Token)
		cfg.Telegram.Channel = prompt(scanner, "Required channel (@username or chat ID)", cfg.Telegram.Channel)
		cfg.Telegram.ChannelURL = prompt(scanner, "Channel invite link", cfg.Telegram.ChannelURL)
		cfg.Telegram.DeveloperURL = prompt(scanner, "Developer link", cfg.Telegram.DeveloperURL)
		cfg.Downloader.Endpoint = prompt(scanner, "Downloader API endpoint", cfg.Downloader.Endpoint)
		cfg.Downloader.APIKey = promptSecret(scanner, "Downloader API key", cfg.Downloader.APIKey)
		cfg.AutoDelete = prompt(scanner, "Auto-delete messages after", cfg.AutoDelete)

		if err := cfg.Validate(); err != nil {
			fmt.Println()
			fmt.Println("Warning:", err)
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	return ask(scanner, label, defaultVal, defaultVal)
}

// promptSecret is prompt with the default masked.
func promptSecret(scanner *bufio.Scanner, label, defaultVal string) string {
	shown := ""
	if defaultVal != "" {
		shown = "***"
	}
	return ask(scanner, label, shown, defaultVal)
}

func ask(scanner *bufio.Scanner, label, shown, defaultVal string) string {
	if shown != "" {
		fmt.Printf("%s [%s]: ", label, shown)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
