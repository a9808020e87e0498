package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/screa/entropy-audit/internal/config"
	"github.com/screa/entropy-audit/internal/crypto"
	"github.com/screa/entropy-audit/pkg/matcher"
	"github.com/screa/entropy-audit/pkg/scanner"
	"github.com/screa/entropy-audit/pkg/types"
	"github.com/screa/entropy-audit/pkg/verify"
)

func scanCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Enumerate a timestamp range and test every derived address",
		Run: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Changed("start") {
				ms, err := config.ParseTimestamp(start)
				if err != nil {
					fatal("--start: %v", err)
				}
				cfg.SetStart(ms)
			}
			if cmd.Flags().Changed("end") {
				ms, err := config.ParseTimestamp(end)
				if err != nil {
					fatal("--end: %v", err)
				}
				cfg.SetEnd(ms)
			}
			runScan()
		},
	}

	f := cmd.Flags()
	f.StringVar(&start, "start", "", "First timestamp: ms since epoch, RFC 3339 or YYYY-MM-DD (required)")
	f.StringVar(&end, "end", "", "Last timestamp, inclusive (required)")
	f.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	f.Uint64Var(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Milliseconds handed to a worker at a time")
	f.Uint32Var(&cfg.Sequences, "sequences", cfg.Sequences, "Sequence indexes per millisecond (timestamp-hash family)")
	f.StringVar(&cfg.Variants, "variants", cfg.Variants, "Engine variants, comma separated (v8, platform-lcg, crt or runtime aliases)")
	f.StringVar(&cfg.Families, "families", cfg.Families, "Key families, comma separated (pool-rc4, timestamp-hash, mnemonic)")
	f.IntVar(&cfg.PoolLen, "pool-len", cfg.PoolLen, "Mnemonic entropy pool length, 16 or 24 bytes")
	f.StringVarP(&cfg.IndexPath, "index", "x", "", "Membership index built with build-index (required)")
	f.StringVar(&cfg.AddressKinds, "address-kinds", cfg.AddressKinds, "Address encodings to test (p2pkh-uncompressed, p2pkh, p2wpkh, eth, all)")
	f.StringVar(&cfg.Network, "network", cfg.Network, "Bitcoin network (mainnet, testnet, regtest)")
	f.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory of the confirmed/unverified/empty logs")
	f.StringVar(&cfg.EsploraURL, "esplora-url", verify.DefaultEsploraURL, "Esplora API used to verify hits")
	f.BoolVar(&cfg.NoVerify, "no-verify", false, "Record every hit as unverified without querying balances")
	f.DurationVar(&cfg.VerifyTimeout, "verify-timeout", cfg.VerifyTimeout, "Timeout of one balance query")
	f.IntVarP(&cfg.LogInterval, "log-interval", "i", cfg.LogInterval, "Logging interval in seconds")
	return cmd
}

func runScan() {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}

	// Setup logging
	setupLogging()

	index, err := matcher.LoadFile(cfg.IndexPath)
	if err != nil {
		fatal("%v", err)
	}
	logger.Printf("Loaded index %s: %s addresses, %s bits, %d hashes, fp rate %g",
		cfg.IndexPath, humanize.Comma(int64(index.Count())), humanize.Comma(int64(index.Bits())),
		index.HashCount(), index.FalsePositiveRate())

	net, _ := cfg.NetParams()
	kinds, _ := cfg.Kinds()
	deps := scanner.Deps{
		Index:   index,
		Deriver: crypto.NewDeriver(net, kinds),
		OnHit:   announceHit,
	}
	if !cfg.NoVerify {
		deps.Checker = verify.NewEsploraClient(cfg.EsploraURL, nil)
	}
	results, err := verify.OpenResultLog(cfg.OutputDir)
	if err != nil {
		fatal("%v", err)
	}
	defer results.Close()
	deps.Sink = results

	s, err := scanner.New(cfg, logger, deps)
	if err != nil {
		fatal("%v", err)
	}

	// Set up signal handling for Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start scanning in a goroutine
	resultChan := make(chan *types.Summary, 1)
	go func() {
		resultChan <- s.Run(context.Background())
	}()

	// Wait for either completion or signal
	var sum *types.Summary
	select {
	case sum = <-resultChan:
	case <-sigChan:
		logger.Println("Received interrupt signal (Ctrl+C). Stopping workers...")
		s.Stop()
		sum = <-resultChan
	}
	reportScan(sum)
}

func announceHit(r *types.ScanResult) {
	switch r.Verification.Outcome {
	case types.OutcomeConfirmed:
		color.New(color.FgGreen, color.Bold).Printf("CONFIRMED %s holds %s sat (%s, ts %d)\n",
			r.DerivedAddress, humanize.Comma(r.Verification.Balance), r.Family, r.TimestampMs)
	case types.OutcomeUnverified:
		color.New(color.FgYellow).Printf("Unverified hit %s (%s)\n", r.DerivedAddress, r.Verification.Reason)
	default:
		color.New(color.FgCyan).Printf("Empty hit %s\n", r.DerivedAddress)
	}
}

func reportScan(sum *types.Summary) {
	logger.Printf("Candidates: %s, addresses: %s, derivation errors: %s",
		humanize.Comma(sum.Candidates), humanize.Comma(sum.Addresses), humanize.Comma(sum.DeriveError))
	logger.Printf("Hits: %d (confirmed %d, unverified %d, empty %d)", sum.Hits, sum.Confirmed, sum.Unverified, sum.Empty)
	logger.Printf("Duration: %v", sum.Duration)

	// Calculate rate safely
	rate := 0.0
	if sum.Duration.Seconds() > 0 {
		rate = float64(sum.Candidates) / sum.Duration.Seconds()
	}
	logger.Printf("Rate: %s candidates/sec", humanize.CommafWithDigits(rate, 2))

	if sum.Completed {
		logger.Println("Range completed.")
		return
	}
	logger.Printf("Scan stopped before the end of the range. Resume with --start %d", sum.ResumeFrom)
}
