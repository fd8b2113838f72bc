package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/builder"
	"github.com/suffix-labs/pivx-shield/pkg/config"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
	"github.com/suffix-labs/pivx-shield/pkg/store"
	"github.com/suffix-labs/pivx-shield/pkg/wallet"
)

// session is an open store with the configured wallet loaded from it.
type session struct {
	cfg    *config.Config
	store  *store.Store
	wallet *wallet.Wallet
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.StorePath())
}

func openSession(cfg *config.Config) (*session, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	data, err := st.Wallet(cfg.Wallet)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w; create it with init", err)
		}
		return nil, err
	}
	w, current, err := wallet.Load(data)
	if err != nil {
		st.Close()
		return nil, err
	}
	if w.Network().Name != cfg.NetworkParams().Name {
		st.Close()
		return nil, fmt.Errorf("wallet %q is on %s, not %s", cfg.Wallet, w.Network().Name, cfg.Network)
	}
	if !current {
		log.Warn("Wallet snapshot uses an older format, rescan recommended", "wallet", cfg.Wallet)
	}
	return &session{cfg: cfg, store: st, wallet: w}, nil
}

func (s *session) save() error {
	data, err := s.wallet.Save()
	if err != nil {
		return err
	}
	return s.store.PutWallet(s.cfg.Wallet, data)
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		log.Error("Failed to close store", "err", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// keyFlags select a spending key by encoding or by seed.
type keyFlags struct {
	spendingKey string
	seed        string
	account     uint32
}

func (k *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&k.spendingKey, "spending-key", "", "encoded spending key")
	cmd.Flags().StringVar(&k.seed, "seed", "", "hex wallet seed")
	cmd.Flags().Uint32Var(&k.account, "account", 0, "account derived from --seed")
}

// key returns the selected key, or nil when neither flag is set.
func (k *keyFlags) key(cfg *config.Config) (*sapling.SpendingKey, error) {
	net := cfg.NetworkParams()
	switch {
	case k.spendingKey != "" && k.seed != "":
		return nil, errors.New("use either --spending-key or --seed")
	case k.spendingKey != "":
		sk, err := address.DecodeSpendingKey(k.spendingKey, net)
		if err != nil {
			return nil, err
		}
		return &sk, nil
	case k.seed != "":
		seed, err := hex.DecodeString(k.seed)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		sk, err := sapling.DeriveSpendingKey(seed, net.CoinType, k.account)
		if err != nil {
			return nil, err
		}
		return &sk, nil
	default:
		return nil, nil
	}
}

func initCmd(conf func() *config.Config) *cobra.Command {
	var (
		keys        keyFlags
		viewingKey  string
		birthHeight uint32
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a wallet from a seed, spending key or viewing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			net := cfg.NetworkParams()
			opts := wallet.Options{Network: net, BirthHeight: birthHeight}

			sk, err := keys.key(cfg)
			if err != nil {
				return err
			}
			switch {
			case sk != nil && viewingKey != "":
				return errors.New("use either a spending key or --viewing-key")
			case sk != nil:
				opts.SpendingKey = sk
			case viewingKey != "":
				if opts.ViewingKey, err = address.DecodeViewingKey(viewingKey, net); err != nil {
					return err
				}
			default:
				return errors.New("one of --seed, --spending-key or --viewing-key is required")
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			s := &session{cfg: cfg, store: st}
			defer s.close()
			if _, err := st.Wallet(cfg.Wallet); err == nil && !force {
				return fmt.Errorf("wallet %q already exists, use --force to replace it", cfg.Wallet)
			}
			if s.wallet, err = wallet.New(opts); err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}
			fmt.Printf("Created wallet %q on %s\n", cfg.Wallet, net.Name)
			fmt.Printf("  Viewing key:  %s\n", s.wallet.ViewingKey())
			fmt.Printf("  Scan from:    %d\n", s.wallet.LastProcessedBlock())
			return nil
		},
	}
	keys.register(cmd)
	cmd.Flags().StringVar(&viewingKey, "viewing-key", "", "encoded full viewing key for a view-only wallet")
	cmd.Flags().Uint32Var(&birthHeight, "birth-height", 0, "first height the wallet may have received funds at")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing wallet")
	return cmd
}

func readBlocks(path string) ([]scanner.Block, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var blocks []scanner.Block
	if err := json.NewDecoder(r).Decode(&blocks); err != nil {
		return nil, fmt.Errorf("decoding blocks: %w", err)
	}
	return blocks, nil
}

func scanCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <blocks.json|->",
		Short: "Scan a JSON list of blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := readBlocks(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(conf())
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.wallet.HandleBlocks(blocks)
			if err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}
			fmt.Printf("Scanned %d blocks up to %d\n", len(blocks), s.wallet.LastProcessedBlock())
			fmt.Printf("  New notes:   %d\n", len(res.NewNotes))
			fmt.Printf("  Nullifiers:  %d\n", len(res.Nullifiers))
			fmt.Printf("  Balance:     %s PIV\n", address.FormatAmount(s.wallet.Balance()))
			return nil
		},
	}
}

func balanceCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the shielded balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(conf())
			if err != nil {
				return err
			}
			defer s.close()
			fmt.Printf("Balance:  %s PIV\n", address.FormatAmount(s.wallet.Balance()))
			fmt.Printf("Pending:  %s PIV\n", address.FormatAmount(s.wallet.PendingBalance()))
			fmt.Printf("Height:   %d\n", s.wallet.LastProcessedBlock())
			return nil
		},
	}
}

func addressCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Generate a new shielded address",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(conf())
			if err != nil {
				return err
			}
			defer s.close()
			addr, err := s.wallet.NewAddress()
			if err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
}

func notesCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "notes",
		Short: "List unspent notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(conf())
			if err != nil {
				return err
			}
			defer s.close()
			for _, n := range s.wallet.Notes() {
				fmt.Printf("%s  %s PIV  position %d\n", n.Nullifier, address.FormatAmount(n.Value()), n.Witness.Position())
				if n.Memo != nil {
					fmt.Printf("  Memo: %s\n", *n.Memo)
				}
			}
			return nil
		},
	}
}

func sendCmd(conf func() *config.Config) *cobra.Command {
	var (
		keys      keyFlags
		to        string
		amount    string
		memo      string
		uri       string
		height    uint32
		utxosPath string
		change    string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build and sign a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			pay := wallet.Payment{To: to, Memo: memo, Height: height, TransparentChangeAddress: change}
			if uri != "" {
				if err := paymentFromURI(&pay, uri, cfg); err != nil {
					return err
				}
			}
			if amount != "" {
				v, err := address.ParseAmount(amount)
				if err != nil {
					return err
				}
				pay.Amount = v
			}
			if pay.To == "" || pay.Amount == 0 {
				return errors.New("a recipient and an amount are required")
			}
			if utxosPath != "" {
				data, err := os.ReadFile(utxosPath)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &pay.Utxos); err != nil {
					return fmt.Errorf("decoding utxos: %w", err)
				}
			}

			sk, err := keys.key(cfg)
			if err != nil {
				return err
			}
			loader := cfg.Prover.Loader()
			if loader == nil {
				return errors.New("no prover parameters configured, see params setup")
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()
			if sk != nil {
				if err := s.wallet.LoadSpendingKey(*sk); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			p, err := prover.NewHandle(loader).Get(ctx)
			if err != nil {
				return err
			}
			res, err := s.wallet.CreateTransaction(ctx, builder.New(p), pay, builder.SinkFunc(func(p prover.Progress) {
				log.Info("Proving", "done", p.Current, "total", p.Total)
			}))
			if err != nil {
				return err
			}

			snapshot, err := s.wallet.Save()
			if err != nil {
				return err
			}
			if err := s.store.PutTransaction(cfg.Wallet, res.TxID, res.TxHex, snapshot); err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	keys.register(cmd)
	f := cmd.Flags()
	f.StringVar(&to, "to", "", "recipient address")
	f.StringVar(&amount, "amount", "", "amount in PIV")
	f.StringVar(&memo, "memo", "", "memo for a shielded recipient")
	f.StringVar(&uri, "uri", "", "payment request URI, instead of --to and --amount")
	f.Uint32Var(&height, "height", 0, "height the transaction is built for")
	f.StringVar(&utxosPath, "utxos", "", "JSON file of UTXOs to spend instead of notes")
	f.StringVar(&change, "change", "", "transparent change address when spending UTXOs")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func paymentFromURI(pay *wallet.Payment, uri string, cfg *config.Config) error {
	req, err := address.ParseURI(uri, cfg.NetworkParams())
	if err != nil {
		return err
	}
	if len(req.Payments) != 1 {
		return fmt.Errorf("payment request has %d recipients, only one is supported", len(req.Payments))
	}
	p := req.Payments[0]
	pay.To = p.Address.String()
	if p.Amount != nil {
		pay.Amount = *p.Amount
	}
	if p.Memo != nil && pay.Memo == "" {
		pay.Memo = *p.Memo
	}
	return nil
}

func finalizeCmd(conf func() *config.Config) *cobra.Command {
	return pendingActionCmd(conf, "finalize", "Mark the notes of a broadcast transaction as spent",
		(*wallet.Wallet).FinalizeTransaction)
}

func discardCmd(conf func() *config.Config) *cobra.Command {
	return pendingActionCmd(conf, "discard", "Forget a transaction that will not be broadcast",
		(*wallet.Wallet).DiscardTransaction)
}

func pendingActionCmd(conf func() *config.Config, use, short string, action func(*wallet.Wallet, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <txid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(conf())
			if err != nil {
				return err
			}
			defer s.close()
			if err := action(s.wallet, args[0]); err != nil {
				return err
			}
			if err := s.store.DeleteTransaction(s.cfg.Wallet, args[0]); err != nil {
				return err
			}
			return s.save()
		},
	}
}

func pendingCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List built transactions that are not finalized",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			txs, err := st.Transactions(cfg.Wallet)
			if err != nil {
				return err
			}
			return printJSON(txs)
		},
	}
}

func rescanCmd(conf func() *config.Config) *cobra.Command {
	var height uint32
	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Reset the wallet to the checkpoint below a height",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(conf())
			if err != nil {
				return err
			}
			defer s.close()
			s.wallet.ReloadFromCheckpoint(height)
			if err := s.save(); err != nil {
				return err
			}
			fmt.Printf("Wallet reset, scan from %d\n", s.wallet.LastProcessedBlock())
			return nil
		},
	}
	cmd.Flags().Uint32Var(&height, "height", 0, "height to rescan from")
	return cmd
}
