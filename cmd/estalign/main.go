package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mbeaufort/estalign/pkg/interfaces/cli/commands"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the run configuration YAML file")
		format     = flag.String("format", "text", "Output format: text, json, csv")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	if *help || *configPath == "" {
		showHelp()
		if *configPath == "" && !*help {
			os.Exit(2)
		}
		return
	}

	// Best effort; DATABASE_URL and friends may come from a .env file.
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cmd := commands.NewLoadCommand(commands.Config{
		ConfigPath: *configPath,
	}, logger)

	result, err := cmd.Execute(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("alignment run failed")
		os.Exit(1)
	}

	if err := generateOutput(result, *format); err != nil {
		logger.Error().Err(err).Msg("failed to render output")
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("estalign - point-in-time estimate alignment")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  estalign -config run.yaml [-format text|json|csv] [-verbose]")
	fmt.Println()
	fmt.Println("The configuration file declares the estimate source (CSV or")
	fmt.Println("postgres), the selection strategy, the simulation calendar, the")
	fmt.Println("asset universe, and the requested columns with their quarter")
	fmt.Println("offsets.")
}
