package main

import (
	"context"
	"testing"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/fractional/collectible"
	"github.com/MixinNetwork/fractional/fractional"
	"github.com/MixinNetwork/fractional/fungible"
	"github.com/stretchr/testify/require"
)

func TestParseShares(t *testing.T) {
	require := require.New(t)

	owners, err := parseShares("user_one:1, user_two:2")
	require.NoError(err)
	require.Equal([]fungible.Coin{
		{Address: "user_one", Amount: "1"},
		{Address: "user_two", Amount: "2"},
	}, owners)

	for _, s := range []string{"", "user_one", "user_one:", ":1", "user_one:1,"} {
		_, err := parseShares(s)
		require.Error(err, s)
	}
}

func TestNodeBootstrap(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	n, err := OpenNode(ctx, dir)
	require.NoError(err)
	require.False(n.Initialized())
	require.Error(n.require())

	require.NoError(n.Bootstrap(ctx, "operator", fractional.InstantiateMsg{DefaultSymbol: "DEV"}))
	require.True(n.Initialized())
	collection, orchestrator := n.collection, n.fractional
	require.NoError(n.Bootstrap(ctx, "operator", fractional.InstantiateMsg{}))
	require.Equal(orchestrator, n.fractional)
	require.NoError(n.Close())

	n, err = OpenNode(ctx, dir)
	require.NoError(err)
	defer n.Close()
	require.NoError(n.require())
	require.Equal(collection, n.collection)
	require.Equal(orchestrator, n.fractional)

	_, err = n.chain.ExecuteContract(ctx, "operator", n.collection, &collectible.ExecuteMsg{Mint: &collectible.Mint{TokenId: "nft", Owner: "alice"}})
	require.NoError(err)

	var info fractional.ContractInfoResponse
	err = chain.QueryInto(ctx, n.chain, n.fractional, &fractional.QueryMsg{ContractInfo: &struct{}{}}, &info)
	require.NoError(err)
	require.Equal("DEV", info.Config.DefaultSymbol)
	require.Equal("operator", info.Config.Creator)

	var owner collectible.OwnerOfResponse
	err = chain.QueryInto(ctx, n.chain, n.collection, &collectible.QueryMsg{OwnerOf: &collectible.OwnerOfQuery{TokenId: "nft"}}, &owner)
	require.NoError(err)
	require.Equal("alice", owner.Owner)
}
