package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/screa/entropy-audit/internal/crypto"
	"github.com/screa/entropy-audit/pkg/matcher"
)

func buildIndexCmd() *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Build the membership index from an address corpus",
		Run: func(cmd *cobra.Command, args []string) {
			if err := cfg.ValidateBuild(); err != nil {
				fatal("%v", err)
			}
			setupLogging()

			opts := matcher.BuildOptions{
				Capacity:          cfg.Capacity,
				FalsePositiveRate: cfg.FalsePositiveRate,
				Column:            cfg.Column,
			}
			if validate {
				net, _ := cfg.NetParams()
				opts.Validate = func(addr string) error { return crypto.ValidateAddress(addr, net) }
			}
			if cfg.Capacity > 0 {
				bits, hashes := matcher.EstimateSize(cfg.Capacity, cfg.FalsePositiveRate)
				logger.Printf("Index for %s addresses at fp rate %g: %s, %d hashes",
					humanize.Comma(int64(cfg.Capacity)), cfg.FalsePositiveRate, humanize.IBytes(uint64(bits/8)), hashes)
			}

			index, stats, err := matcher.BuildFile(cfg.Corpus, opts, logger)
			if err != nil {
				fatal("%v", err)
			}
			logger.Printf("Read %s lines: %s indexed, %s malformed",
				humanize.Comma(stats.Lines), humanize.Comma(stats.Inserted), humanize.Comma(stats.Malformed))

			if err := index.SaveFile(cfg.IndexPath); err != nil {
				fatal("%v", err)
			}
			logger.Printf("Wrote %s (%s bits, %d hashes)", cfg.IndexPath, humanize.Comma(int64(index.Bits())), index.HashCount())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Corpus, "corpus", "c", "", "Address corpus, one address per line, optionally tab separated (required)")
	f.StringVarP(&cfg.IndexPath, "index", "x", "", "Output index file (required)")
	f.UintVar(&cfg.Capacity, "capacity", 0, "Expected number of addresses (default: corpus line count)")
	f.Float64Var(&cfg.FalsePositiveRate, "fp-rate", cfg.FalsePositiveRate, "Target false positive rate")
	f.IntVar(&cfg.Column, "column", 0, "Zero-based column holding the address")
	f.BoolVar(&validate, "validate-addresses", false, "Skip rows that do not decode as addresses")
	f.StringVar(&cfg.Network, "network", cfg.Network, "Network used to validate addresses")
	return cmd
}

func queryCmd() *cobra.Command {
	var input, output, confirmCorpus string
	var resumeFrom int64
	var confirmColumn int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Test a stream of addresses against the membership index",
		Run: func(cmd *cobra.Command, args []string) {
			if cfg.IndexPath == "" {
				fatal("must specify --index")
			}
			setupLogging()

			index, err := matcher.LoadFile(cfg.IndexPath)
			if err != nil {
				fatal("%v", err)
			}

			in := io.Reader(os.Stdin)
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					fatal("%v", err)
				}
				defer f.Close()
				in = f
			}
			out, closeOut, err := openOutput(output)
			if err != nil {
				fatal("%v", err)
			}
			defer closeOut()
			w := bufio.NewWriter(out)
			defer w.Flush()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var positives []matcher.Match
			stats, err := index.QueryStream(ctx, in, matcher.QueryOptions{ResumeFrom: resumeFrom, Column: cfg.Column}, logger,
				func(m matcher.Match) error {
					if confirmCorpus != "" {
						positives = append(positives, m)
						return nil
					}
					_, err := fmt.Fprintf(w, "%d\t%s\n", m.Line, m.Row)
					return err
				})
			logger.Printf("Queried %s addresses: %s positives, %s malformed rows",
				humanize.Comma(stats.Queried), humanize.Comma(stats.Positives), humanize.Comma(stats.Malformed))
			if err != nil {
				logger.Printf("Query stopped: %v. Resume with --resume-from %d", err, stats.NextLine)
			}

			if confirmCorpus != "" {
				confirmed, cerr := confirmPositives(w, confirmCorpus, confirmColumn, positives)
				if cerr != nil {
					fatal("%v", cerr)
				}
				logger.Printf("Confirmed %d of %d positives against %s", confirmed, len(positives), confirmCorpus)
			}
			if err != nil {
				w.Flush()
				os.Exit(1)
			}
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.IndexPath, "index", "x", "", "Membership index (required)")
	f.StringVarP(&input, "input", "i", "-", "Addresses to test (default: stdin)")
	f.StringVarP(&output, "output", "o", "-", "Where to write positives (default: stdout)")
	f.IntVar(&cfg.Column, "column", 0, "Zero-based column holding the address")
	f.Int64Var(&resumeFrom, "resume-from", 0, "Skip this many leading input lines")
	f.StringVar(&confirmCorpus, "confirm", "", "Exact corpus used to discard false positives")
	f.IntVar(&confirmColumn, "confirm-column", 0, "Zero-based column holding the address in the --confirm corpus")
	return cmd
}

// confirmPositives writes the positives that occur in the exact corpus and
// returns how many did.
func confirmPositives(w io.Writer, corpusPath string, column int, positives []matcher.Match) (int, error) {
	f, err := os.Open(corpusPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	addrs := make([]string, len(positives))
	for i, m := range positives {
		addrs[i] = m.Address
	}
	found, err := matcher.Confirm(f, column, addrs)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, m := range positives {
		if !found[m.Address] {
			continue
		}
		confirmed++
		if _, err := fmt.Fprintf(w, "%d\t%s\n", m.Line, m.Row); err != nil {
			return confirmed, err
		}
	}
	return confirmed, nil
}
