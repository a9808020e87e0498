package main

import (
	"bufio"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/screa/entropy-audit/internal/config"
	"github.com/screa/entropy-audit/internal/crypto"
	"github.com/screa/entropy-audit/pkg/engine"
	"github.com/screa/entropy-audit/pkg/kernelgen"
	"github.com/screa/entropy-audit/pkg/keygen"
	"github.com/screa/entropy-audit/pkg/oracle"
	"github.com/screa/entropy-audit/pkg/parity"
)

func validateCmd() *cobra.Command {
	var vectorsPath string
	var noOracle bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Replay recorded vectors through key extraction",
		Run: func(cmd *cobra.Command, args []string) {
			if vectorsPath == "" {
				fatal("must specify --vectors")
			}
			setupLogging()

			vectors, err := parity.LoadVectorsFile(vectorsPath)
			if err != nil {
				fatal("%v", err)
			}
			logger.Printf("Loaded %d vectors from %s", len(vectors), vectorsPath)

			v := parity.NewValidator(logger)
			v.OracleCheck = !noOracle
			rep, err := v.Run(vectors)

			status := color.New(color.FgGreen, color.Bold).SprintFunc()
			if rep.Failed > 0 {
				status = color.New(color.FgRed, color.Bold).SprintFunc()
			}
			fmt.Println(status(fmt.Sprintf("%d checked, %d passed, %d failed", rep.Total, rep.Passed, rep.Failed)))
			if err != nil {
				fatal("%v", err)
			}
			if rep.Failed > 0 {
				fatal("%d vectors failed", rep.Failed)
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&vectorsPath, "vectors", "", "CSV file of recorded vectors (required)")
	f.BoolVar(&noOracle, "no-oracle", false, "Skip the reference SHA-256 cross-check")
	return cmd
}

func kernelCmd() *cobra.Command {
	var dialect, output string
	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Generate the RIPEMD-160 compression kernel from its round table",
		Run: func(cmd *cobra.Command, args []string) {
			d, err := kernelgen.ParseDialect(dialect)
			if err != nil {
				fatal("%v", err)
			}
			if err := checkRoundTable(); err != nil {
				fatal("%v", err)
			}
			src, err := kernelgen.Generate(&kernelgen.RIPEMD160, d)
			if err != nil {
				fatal("%v", err)
			}

			out, closeOut, err := openOutput(output)
			if err != nil {
				fatal("%v", err)
			}
			defer closeOut()
			if _, err := out.WriteString(src); err != nil {
				fatal("%v", err)
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&dialect, "dialect", "wgsl", "Kernel dialect (wgsl, opencl)")
	f.StringVarP(&output, "output", "o", "-", "Output file (default: stdout)")
	return cmd
}

// checkRoundTable compares one compression through the table interpreter with
// the reference compressor before any source is emitted.
func checkRoundTable() error {
	var block [16]uint32
	for i := range block {
		block[i] = uint32(i)*0x9e3779b9 + 1
	}
	want := oracle.RIPEMD160Init
	oracle.CompressRIPEMD160(&want, &block)

	got, err := kernelgen.Evaluate(&kernelgen.RIPEMD160, oracle.RIPEMD160Init, block)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("round table disagrees with reference compressor: %08x != %08x", got, want)
	}
	return nil
}

func deriveCmd() *cobra.Command {
	var ts, family, variant, addressKinds string
	var sequence uint32
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Show the key and addresses derived for one point",
		Run: func(cmd *cobra.Command, args []string) {
			if ts == "" {
				fatal("must specify --timestamp")
			}
			tsMs, err := config.ParseTimestamp(ts)
			if err != nil {
				fatal("--timestamp: %v", err)
			}
			fam, err := keygen.ParseFamily(family)
			if err != nil {
				fatal("%v", err)
			}
			v, err := engine.ParseVariant(variant)
			if err != nil {
				fatal("%v", err)
			}
			net, err := cfg.NetParams()
			if err != nil {
				fatal("%v", err)
			}
			kinds, err := crypto.ParseAddressKinds(addressKinds)
			if err != nil {
				fatal("%v", err)
			}

			target := keygen.Target{Family: fam, Variant: v, PoolLen: cfg.PoolLen}
			c, err := keygen.Derive(target, tsMs, sequence)
			if err != nil {
				fatal("%v", err)
			}
			d := crypto.NewDeriver(net, kinds)

			w := bufio.NewWriter(cmd.OutOrStdout())
			defer w.Flush()
			fmt.Fprintf(w, "point:     %s ts=%d seq=%d\n", target, c.TimestampMs, c.Sequence)

			var addrs []crypto.Address
			if c.Mnemonic != "" {
				fmt.Fprintf(w, "mnemonic:  %s\n", c.Mnemonic)
				addrs, err = d.FromMnemonic(c.Mnemonic, "")
			} else {
				fmt.Fprintf(w, "key:       %s\n", c.PrivateKeyHex())
				for _, compressed := range []bool{true, false} {
					wif, werr := crypto.WIF(c.PrivateKey, net, compressed)
					if werr != nil {
						continue
					}
					fmt.Fprintf(w, "wif:       %s\n", wif)
				}
				addrs, err = d.FromPrivateKey(c.PrivateKey)
			}
			if err != nil {
				fatal("%v", err)
			}
			for _, a := range addrs {
				line := fmt.Sprintf("%-18s %s", a.Kind, a.Value)
				if c.Mnemonic != "" {
					line += "  " + crypto.PathString(a.Kind)
				}
				fmt.Fprintln(w, line)
			}
		},
	}

	f := cmd.Flags()
	f.StringVarP(&ts, "timestamp", "t", "", "Timestamp: ms since epoch, RFC 3339 or YYYY-MM-DD (required)")
	f.StringVar(&family, "family", "pool-rc4", "Key family")
	f.StringVar(&variant, "variant", "v8", "Engine variant")
	f.Uint32Var(&sequence, "sequence", 0, "Sequence index (timestamp-hash family)")
	f.IntVar(&cfg.PoolLen, "pool-len", cfg.PoolLen, "Mnemonic entropy pool length, 16 or 24 bytes")
	f.StringVar(&cfg.Network, "network", cfg.Network, "Bitcoin network (mainnet, testnet, regtest)")
	f.StringVar(&addressKinds, "address-kinds", "all", "Address encodings to print")
	return cmd
}

func vectorsCmd() *cobra.Command {
	var base string
	var count int
	var output string
	cmd := &cobra.Command{
		Use:   "vectors",
		Short: "Write synthetic timestamp-hash vectors",
		Run: func(cmd *cobra.Command, args []string) {
			if count <= 0 {
				fatal("--count must be positive")
			}
			baseMs, err := config.ParseTimestamp(base)
			if err != nil {
				fatal("--base: %v", err)
			}
			out, closeOut, err := openOutput(output)
			if err != nil {
				fatal("%v", err)
			}
			defer closeOut()
			if err := parity.WriteVectors(out, parity.Synthesize(baseMs, count)); err != nil {
				fatal("%v", err)
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&base, "base", "1389781800000", "Timestamp of the first vector")
	f.IntVarP(&count, "count", "n", 100, "Number of vectors")
	f.StringVarP(&output, "output", "o", "-", "Output file (default: stdout)")
	return cmd
}
