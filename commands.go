package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/fractional/collectible"
	"github.com/MixinNetwork/fractional/fractional"
	"github.com/MixinNetwork/fractional/fungible"
	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/mixin/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// withNode opens the node for the duration of one command.
func withNode(cmd *cobra.Command, initialized bool, fn func(ctx context.Context, n *Node) error) error {
	ctx := cmd.Context()
	n, err := OpenNode(ctx, conf.DataDir)
	if err != nil {
		return err
	}
	defer n.Close()

	if initialized {
		if err := n.require(); err != nil {
			return err
		}
	}
	return fn(ctx, n)
}

func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func printResult(res *chain.Result) error {
	return printYAML(map[string]interface{}{
		"trace_id": res.TraceId,
		"events":   res.Events,
	})
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Instantiate the devnet collection and the orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, false, func(ctx context.Context, n *Node) error {
				fc := fractional.InstantiateMsg{
					FungibleCodeId: conf.Fractional.FungibleCodeId,
					Decimals:       conf.Fractional.Decimals,
					DefaultName:    conf.Fractional.DefaultName,
					DefaultSymbol:  conf.Fractional.DefaultSymbol,
				}
				err := n.Bootstrap(ctx, conf.Operator, fc)
				if err != nil {
					return err
				}
				return printYAML(map[string]string{
					"collection": n.collection,
					"fractional": n.fractional,
				})
			})
		},
	}
}

func mintCommand() *cobra.Command {
	var token, owner, uri string
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a devnet NFT to an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, true, func(ctx context.Context, n *Node) error {
				msg := &collectible.ExecuteMsg{Mint: &collectible.Mint{TokenId: token, Owner: owner, TokenUri: uri}}
				res, err := n.chain.ExecuteContract(ctx, conf.Operator, n.collection, msg)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token id")
	cmd.Flags().StringVar(&owner, "owner", "", "token owner")
	cmd.Flags().StringVar(&uri, "uri", "", "token uri")
	cmd.MarkFlagRequired("token")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func approveCommand() *cobra.Command {
	var token, owner string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the orchestrator to take an NFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, true, func(ctx context.Context, n *Node) error {
				msg := &collectible.ExecuteMsg{Approve: &collectible.Approve{Spender: n.fractional, TokenId: token}}
				res, err := n.chain.ExecuteContract(ctx, owner, n.collection, msg)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token id")
	cmd.Flags().StringVar(&owner, "owner", "", "token owner")
	cmd.MarkFlagRequired("token")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func fractionalizeCommand() *cobra.Command {
	var token, owner, shares, name, symbol string
	var direct bool
	cmd := &cobra.Command{
		Use:   "fractionalize",
		Short: "Lock an NFT and mint its fungible shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			owners, err := parseShares(shares)
			if err != nil {
				return err
			}
			return withNode(cmd, true, func(ctx context.Context, n *Node) error {
				var res *chain.Result
				if direct {
					msg := &fractional.ExecuteMsg{Fractionalize: &fractional.Fractionalize{
						Collection: n.collection,
						TokenId:    token,
						Owners:     owners,
						Name:       name,
						Symbol:     symbol,
					}}
					res, err = n.chain.ExecuteContract(ctx, owner, n.fractional, msg)
				} else {
					hook := &fractional.ReceiveMsg{Fractionalize: &fractional.FractionalizeHook{
						Owners: owners,
						Name:   name,
						Symbol: symbol,
					}}
					msg := &collectible.ExecuteMsg{SendNft: &collectible.SendNft{
						Contract: n.fractional,
						TokenId:  token,
						Msg:      common.MsgpackMarshalPanic(hook),
					}}
					res, err = n.chain.ExecuteContract(ctx, owner, n.collection, msg)
				}
				if err != nil {
					return err
				}
				address, _ := res.Attribute(n.fractional, "token_address")
				logger.Verbosef("fractionalize(%s, %s) => %s\n", owner, token, address)
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token id")
	cmd.Flags().StringVar(&owner, "owner", "", "token owner")
	cmd.Flags().StringVar(&shares, "shares", "", "initial shares as address:amount,address:amount")
	cmd.Flags().StringVar(&name, "name", "", "fungible token name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "fungible token symbol")
	cmd.Flags().BoolVar(&direct, "direct", false, "let the orchestrator take the approved NFT instead of sending it")
	cmd.MarkFlagRequired("token")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("shares")
	return cmd
}

func transferCommand() *cobra.Command {
	var tokenAddress, from, to, amount string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer fungible shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, true, func(ctx context.Context, n *Node) error {
				msg := &fungible.ExecuteMsg{Transfer: &fungible.Transfer{Recipient: to, Amount: amount}}
				res, err := n.chain.ExecuteContract(ctx, from, tokenAddress, msg)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&tokenAddress, "token-address", "", "fungible token contract")
	cmd.Flags().StringVar(&from, "from", "", "sender")
	cmd.Flags().StringVar(&to, "to", "", "recipient")
	cmd.Flags().StringVar(&amount, "amount", "", "amount")
	cmd.MarkFlagRequired("token-address")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func unfractionalizeCommand() *cobra.Command {
	var tokenAddress, holder, amount, recipient string
	cmd := &cobra.Command{
		Use:   "unfractionalize",
		Short: "Return the entire supply and release the NFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, true, func(ctx context.Context, n *Node) error {
				hook := &fractional.ReceiveMsg{Unfractionalize: &fractional.UnfractionalizeHook{Recipient: recipient}}
				msg := &fungible.ExecuteMsg{Send: &fungible.Send{
					Contract: n.fractional,
					Amount:   amount,
					Msg:      common.MsgpackMarshalPanic(hook),
				}}
				res, err := n.chain.ExecuteContract(ctx, holder, tokenAddress, msg)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&tokenAddress, "token-address", "", "fungible token contract")
	cmd.Flags().StringVar(&holder, "holder", "", "holder of the entire supply")
	cmd.Flags().StringVar(&amount, "amount", "", "amount")
	cmd.Flags().StringVar(&recipient, "recipient", "", "NFT recipient, the holder when empty")
	cmd.MarkFlagRequired("token-address")
	cmd.MarkFlagRequired("holder")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func queryCommand() *cobra.Command {
	var token, tokenAddress, address string
	cmd := &cobra.Command{
		Use:       "query record|nft|count|balance|owner|supply",
		Short:     "Query contract state",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"record", "nft", "count", "balance", "owner", "supply"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, true, func(ctx context.Context, n *Node) error {
				var contract string
				var msg, out interface{}
				switch args[0] {
				case "record":
					contract = n.fractional
					msg = &fractional.QueryMsg{ResolveTokenAddress: &fractional.Pair{Collection: n.collection, TokenId: token}}
					out = &fractional.TokenAddressResponse{}
				case "nft":
					contract = n.fractional
					msg = &fractional.QueryMsg{ResolveNft: &fractional.ResolveNft{TokenAddress: tokenAddress}}
					out = &fractional.NftResponse{}
				case "count":
					contract = n.fractional
					msg = &fractional.QueryMsg{CountActive: &struct{}{}}
					out = &fractional.CountResponse{}
				case "balance":
					contract = tokenAddress
					msg = &fungible.QueryMsg{Balance: &fungible.BalanceQuery{Address: address}}
					out = &fungible.BalanceResponse{}
				case "owner":
					contract = n.collection
					msg = &collectible.QueryMsg{OwnerOf: &collectible.OwnerOfQuery{TokenId: token}}
					out = &collectible.OwnerOfResponse{}
				case "supply":
					contract = tokenAddress
					msg = &fungible.QueryMsg{TokenInfo: &struct{}{}}
					out = &fungible.TokenInfoResponse{}
				default:
					return fmt.Errorf("unknown query %s", args[0])
				}
				err := chain.QueryInto(ctx, n.chain, contract, msg, out)
				if err != nil {
					return err
				}
				return printYAML(out)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token id")
	cmd.Flags().StringVar(&tokenAddress, "token-address", "", "fungible token contract")
	cmd.Flags().StringVar(&address, "address", "", "balance holder")
	return cmd
}

func transactionsCommand() *cobra.Command {
	var state string
	var limit int
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List journaled transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := chain.ParseTransactionState(state)
			if err != nil {
				return err
			}
			return withNode(cmd, false, func(ctx context.Context, n *Node) error {
				txs, err := n.chain.ListTransactions(s, limit)
				if err != nil {
					return err
				}
				for _, tx := range txs {
					fmt.Printf("%s %d %s %s %s %s\n", tx.TraceId, tx.Height,
						chain.TransactionStateName(tx.State), tx.Sender, tx.Contract, tx.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "committed", "committed or reverted")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum transactions")
	return cmd
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(cmd, false, func(ctx context.Context, n *Node) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}))
				server := &http.Server{
					Addr:              conf.MetricsAddr,
					Handler:           mux,
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					server.Shutdown(sctx)
				}()
				logger.Printf("serve(%s) metrics\n", conf.MetricsAddr)
				err := server.ListenAndServe()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
		},
	}
}

// parseShares reads owners as address:amount pairs separated by commas.
func parseShares(s string) ([]fungible.Coin, error) {
	var owners []fungible.Coin
	for _, part := range strings.Split(s, ",") {
		address, amount, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || address == "" || amount == "" {
			return nil, fmt.Errorf("invalid share %q", part)
		}
		owners = append(owners, fungible.Coin{Address: address, Amount: amount})
	}
	return owners, nil
}
