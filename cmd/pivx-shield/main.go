// pivx-shield CLI - PIVX shielded wallet
//
// Example usage:
//
//	# Create a wallet from a hex seed and scan blocks
//	pivx-shield init --seed <hex> --birth-height 1200000
//	pivx-shield scan blocks.json
//
//	# Pay a transparent address
//	pivx-shield send --spending-key <key> --to <address> --amount 1.5 --height 1200100
//
//	# Mark it spent after broadcasting
//	pivx-shield finalize <txid>
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/suffix-labs/pivx-shield/pkg/config"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
)

var (
	Version = "dev"
	Commit  = "none"
)

// flags shared by every command; non-empty values override the config file.
type globalFlags struct {
	config    string
	network   string
	datadir   string
	wallet    string
	verbosity int
}

func main() {
	var (
		g   globalFlags
		cfg *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "pivx-shield",
		Short:         "PIVX shielded wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = loadConfig(cmd, &g); err != nil {
				return err
			}
			setupLogging(cfg.Verbosity)
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "YAML configuration file")
	pf.StringVar(&g.network, "network", "", "network: main or test")
	pf.StringVar(&g.datadir, "datadir", "", "data directory")
	pf.StringVar(&g.wallet, "wallet", "", "wallet name inside the data directory")
	pf.IntVar(&g.verbosity, "verbosity", 0, "log level 0-5")

	conf := func() *config.Config { return cfg }
	rootCmd.AddCommand(
		initCmd(conf),
		scanCmd(conf),
		balanceCmd(conf),
		addressCmd(conf),
		notesCmd(conf),
		sendCmd(conf),
		finalizeCmd(conf),
		discardCmd(conf),
		pendingCmd(conf),
		rescanCmd(conf),
		checkpointCmd(conf),
		feeCmd(),
		parseURICmd(conf),
		paramsCmd(conf),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	if g.network != "" {
		cfg.Network = g.network
	}
	if g.datadir != "" {
		cfg.DataDir = g.datadir
	}
	if g.wallet != "" {
		cfg.Wallet = g.wallet
	}
	if cmd.Flags().Changed("verbosity") {
		cfg.Verbosity = g.verbosity
	}
	return cfg, cfg.Validate()
}

func setupLogging(verbosity int) {
	var lvl slog.Level
	switch {
	case verbosity <= 1:
		lvl = slog.LevelError
	case verbosity == 2:
		lvl = slog.LevelWarn
	case verbosity == 3:
		lvl = slog.LevelInfo
	case verbosity == 4:
		lvl = slog.LevelDebug
	default:
		lvl = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pivx-shield %s (%s)\n", Version, Commit)
			fmt.Printf("Sapling branch id: %#08x\n", consensus.SaplingBranchID)
		},
	}
}
