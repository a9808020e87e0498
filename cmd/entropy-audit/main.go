package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/screa/entropy-audit/internal/config"
	logpkg "github.com/screa/entropy-audit/internal/logger"
)

var (
	cfg    = config.NewConfig()
	logger *logpkg.Logger
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "entropy-audit",
		Short: "Audit wallets generated from weak, timestamp-seeded randomness",
		Long: `Reproduces the keys that historically vulnerable wallet software derived
from timestamp-seeded generators and tests them against a corpus of known
addresses through a bloom filter index.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file (default: stdout)")

	rootCmd.AddCommand(
		scanCmd(),
		buildIndexCmd(),
		queryCmd(),
		validateCmd(),
		kernelCmd(),
		deriveCmd(),
		vectorsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	if cfg.LogFile != "" {
		// Log to file
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		logger = logpkg.NewWriter(file)
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		// Log to stdout
		logger = logpkg.New()
		logger.SetFlags(log.LstdFlags)
	}
	logger.SetVerbose(cfg.Verbose)
}

// fatal reports err and exits with status 1.
func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if logger != nil && cfg.LogFile != "" {
		logger.Print(msg)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

// openOutput returns stdout for "" or "-", otherwise creates path.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
