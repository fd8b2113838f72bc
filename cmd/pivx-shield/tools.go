package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/api"
	"github.com/suffix-labs/pivx-shield/pkg/config"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
	"github.com/suffix-labs/pivx-shield/pkg/selection"
)

func checkpointCmd(conf func() *config.Config) *cobra.Command {
	var height uint32
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Show the checkpoint closest below a height",
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := api.ClosestCheckpoint(height, conf().NetworkParams())
			if err != nil {
				return err
			}
			root, err := api.SaplingRoot(cp.TreeHex)
			if err != nil {
				return err
			}
			fmt.Printf("Height:  %d\n", cp.Height)
			fmt.Printf("Root:    %s\n", root)
			fmt.Printf("Tree:    %s\n", cp.TreeHex)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&height, "height", ^uint32(0), "height to look below")
	return cmd
}

func feeCmd() *cobra.Command {
	var tIn, tOut, sIn, sOut uint64
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Compute the fee of a transaction shape",
		Run: func(cmd *cobra.Command, args []string) {
			fee := selection.Fee(tIn, tOut, sIn, sOut)
			fmt.Printf("%s PIV (%d sat)\n", address.FormatAmount(fee), fee)
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&tIn, "t-in", 0, "transparent inputs")
	f.Uint64Var(&tOut, "t-out", 0, "transparent outputs")
	f.Uint64Var(&sIn, "s-in", 0, "shielded spends")
	f.Uint64Var(&sOut, "s-out", 2, "shielded outputs")
	return cmd
}

func parseURICmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "parse-uri <uri>",
		Short: "Parse a payment request URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := address.ParseURI(args[0], conf().NetworkParams())
			if err != nil {
				return fmt.Errorf("parsing URI: %w", err)
			}

			fmt.Println("Payment Request:")
			fmt.Printf("  Payments: %d\n\n", len(req.Payments))
			for i, payment := range req.Payments {
				fmt.Printf("Payment %d:\n", i+1)
				fmt.Printf("  Address: %s\n", payment.Address)
				if payment.Amount != nil {
					fmt.Printf("  Amount:  %s PIV\n", address.FormatAmount(*payment.Amount))
				} else {
					fmt.Println("  Amount:  (user specified)")
				}
				if payment.Memo != nil {
					fmt.Printf("  Memo:    %s\n", *payment.Memo)
				}
				if payment.Label != nil {
					fmt.Printf("  Label:   %s\n", *payment.Label)
				}
				if payment.Message != nil {
					fmt.Printf("  Message: %s\n", *payment.Message)
				}
				fmt.Println()
			}
			fmt.Printf("Re-encoded URI:\n%s\n", req.Encode())
			return nil
		},
	}
}

func paramsCmd(conf func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Manage prover parameters",
	}

	var out string
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Generate fresh parameters for local use",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := prover.Setup()
			if err != nil {
				return err
			}
			spend, output, err := params.Encode()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			spendPath := filepath.Join(out, "sapling-spend.params")
			outputPath := filepath.Join(out, "sapling-output.params")
			if err := os.WriteFile(spendPath, spend, 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(outputPath, output, 0o644); err != nil {
				return err
			}
			fmt.Println("prover:")
			fmt.Printf("  spendPath: %s\n", spendPath)
			fmt.Printf("  outputPath: %s\n", outputPath)
			fmt.Println("  checksums:")
			fmt.Printf("    spend: %s\n", prover.Checksum(spend))
			fmt.Printf("    output: %s\n", prover.Checksum(output))
			return nil
		},
	}
	setup.Flags().StringVar(&out, "out", "params", "directory to write the parameter files to")

	check := &cobra.Command{
		Use:   "check",
		Short: "Load the configured parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := conf().Prover.Loader()
			if loader == nil {
				return errors.New("no prover parameters configured")
			}
			svc := api.NewService(loader)
			if err := svc.LoadProver(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Prover loaded: %t\n", svc.ProverIsLoaded())
			return nil
		},
	}

	cmd.AddCommand(setup, check)
	return cmd
}
