package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"treasury-agent/internal/cli"
	"treasury-agent/internal/config"
	"treasury-agent/internal/logging"
)

func main() {
	// Optional .env for local development; credentials.toml and real
	// environment variables still win.
	_ = godotenv.Load()

	configDir := configDirFromArgs(os.Args[1:])

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDirFromArgs pre-scans for --config so the directory is known
// before cobra parses flags; config has to load first to wire backends.
func configDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(arg) > len("--config=") && arg[:len("--config=")] == "--config=" {
			return arg[len("--config="):]
		}
	}
	return ""
}
