package collectible

import (
	"context"
	"testing"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/mixin/common"
	"github.com/stretchr/testify/require"
)

type collectionTest struct {
	t        *testing.T
	contract *Contract
	deps     chain.Deps
	env      chain.Env
}

func newCollectionTest(t *testing.T) *collectionTest {
	ct := &collectionTest{
		t:        t,
		contract: NewContract(),
		deps:     chain.Deps{Storage: chain.NewMemStorage()},
		env:      chain.Env{Block: chain.Block{Height: 1}, Contract: "nft-contract"},
	}
	msg := &InstantiateMsg{Name: "Devnet Collection", Symbol: "DNFT", Minter: "minter"}
	_, err := ct.contract.Instantiate(context.Background(), ct.deps, ct.env, chain.MessageInfo{Sender: "minter"}, common.MsgpackMarshalPanic(msg))
	require.NoError(t, err)
	return ct
}

func (ct *collectionTest) execute(sender string, msg *ExecuteMsg) (*chain.Response, error) {
	return ct.contract.Execute(context.Background(), ct.deps, ct.env, chain.MessageInfo{Sender: sender}, common.MsgpackMarshalPanic(msg))
}

func (ct *collectionTest) owner(tokenId string) (*OwnerOfResponse, error) {
	raw, err := ct.contract.Query(context.Background(), ct.deps, ct.env, common.MsgpackMarshalPanic(&QueryMsg{OwnerOf: &OwnerOfQuery{TokenId: tokenId}}))
	if err != nil {
		return nil, err
	}
	var resp OwnerOfResponse
	err = common.MsgpackUnmarshal(raw, &resp)
	return &resp, err
}

func (ct *collectionTest) mint(tokenId, owner string) {
	_, err := ct.execute("minter", &ExecuteMsg{Mint: &Mint{TokenId: tokenId, Owner: owner}})
	require.NoError(ct.t, err)
}

func TestMintAndQuery(t *testing.T) {
	require := require.New(t)
	ct := newCollectionTest(t)

	_, err := ct.execute("user_one", &ExecuteMsg{Mint: &Mint{TokenId: "nft", Owner: "user_one"}})
	require.ErrorIs(err, ErrUnauthorized)
	_, err = ct.execute("minter", &ExecuteMsg{Mint: &Mint{TokenId: "", Owner: "user_one"}})
	require.ErrorIs(err, ErrInvalidMessage)

	ct.mint("nft", "owner")
	_, err = ct.execute("minter", &ExecuteMsg{Mint: &Mint{TokenId: "nft", Owner: "user_one"}})
	require.ErrorIs(err, ErrTokenClaimed)
	ct.mint("nft2", "owner")

	resp, err := ct.owner("nft")
	require.NoError(err)
	require.Equal("owner", resp.Owner)
	require.Empty(resp.Approvals)
	_, err = ct.owner("missing")
	require.ErrorIs(err, ErrTokenNotFound)

	raw, err := ct.contract.Query(context.Background(), ct.deps, ct.env, common.MsgpackMarshalPanic(&QueryMsg{NumTokens: &struct{}{}}))
	require.NoError(err)
	var num NumTokensResponse
	require.NoError(common.MsgpackUnmarshal(raw, &num))
	require.Equal(uint64(2), num.Count)

	raw, err = ct.contract.Query(context.Background(), ct.deps, ct.env, common.MsgpackMarshalPanic(&QueryMsg{ContractInfo: &struct{}{}}))
	require.NoError(err)
	var info ContractInfoResponse
	require.NoError(common.MsgpackUnmarshal(raw, &info))
	require.Equal("DNFT", info.Symbol)
}

func TestApproveAndTransfer(t *testing.T) {
	require := require.New(t)
	ct := newCollectionTest(t)
	ct.mint("nft", "owner")

	_, err := ct.execute("fractionalizer", &ExecuteMsg{TransferNft: &TransferNft{Recipient: "fractionalizer", TokenId: "nft"}})
	require.ErrorIs(err, ErrUnauthorized)
	_, err = ct.execute("user_one", &ExecuteMsg{Approve: &Approve{Spender: "user_one", TokenId: "nft"}})
	require.ErrorIs(err, ErrUnauthorized)

	_, err = ct.execute("owner", &ExecuteMsg{Approve: &Approve{Spender: "fractionalizer", TokenId: "nft"}})
	require.NoError(err)
	_, err = ct.execute("owner", &ExecuteMsg{Approve: &Approve{Spender: "fractionalizer", TokenId: "nft"}})
	require.NoError(err)
	resp, err := ct.owner("nft")
	require.NoError(err)
	require.Equal([]string{"fractionalizer"}, resp.Approvals)

	_, err = ct.execute("fractionalizer", &ExecuteMsg{TransferNft: &TransferNft{Recipient: "fractionalizer", TokenId: "nft"}})
	require.NoError(err)
	resp, err = ct.owner("nft")
	require.NoError(err)
	require.Equal("fractionalizer", resp.Owner)
	require.Empty(resp.Approvals)

	_, err = ct.execute("owner", &ExecuteMsg{TransferNft: &TransferNft{Recipient: "owner", TokenId: "nft"}})
	require.ErrorIs(err, ErrUnauthorized)
	_, err = ct.execute("fractionalizer", &ExecuteMsg{TransferNft: &TransferNft{TokenId: "nft"}})
	require.ErrorIs(err, ErrInvalidMessage)
}

func TestRevoke(t *testing.T) {
	require := require.New(t)
	ct := newCollectionTest(t)
	ct.mint("nft", "owner")

	_, err := ct.execute("owner", &ExecuteMsg{Approve: &Approve{Spender: "spender", TokenId: "nft"}})
	require.NoError(err)
	_, err = ct.execute("spender", &ExecuteMsg{Revoke: &Revoke{Spender: "spender", TokenId: "nft"}})
	require.ErrorIs(err, ErrUnauthorized)
	_, err = ct.execute("owner", &ExecuteMsg{Revoke: &Revoke{Spender: "spender", TokenId: "nft"}})
	require.NoError(err)
	_, err = ct.execute("spender", &ExecuteMsg{TransferNft: &TransferNft{Recipient: "spender", TokenId: "nft"}})
	require.ErrorIs(err, ErrUnauthorized)
}

func TestSendNft(t *testing.T) {
	require := require.New(t)
	ct := newCollectionTest(t)
	ct.mint("nft", "owner")

	res, err := ct.execute("owner", &ExecuteMsg{SendNft: &SendNft{Contract: "fractionalizer", TokenId: "nft", Msg: []byte("hi")}})
	require.NoError(err)
	resp, err := ct.owner("nft")
	require.NoError(err)
	require.Equal("fractionalizer", resp.Owner)

	require.Len(res.Messages, 1)
	exec := res.Messages[0].Msg.Execute
	require.NotNil(exec)
	require.Equal("fractionalizer", exec.Contract)
	var hook ReceiveNftHook
	require.NoError(common.MsgpackUnmarshal(exec.Msg, &hook))
	require.Equal(&ReceiveNft{Sender: "owner", TokenId: "nft", Msg: []byte("hi")}, hook.ReceiveNft)

	_, err = ct.execute("owner", &ExecuteMsg{SendNft: &SendNft{Contract: "other", TokenId: "nft"}})
	require.ErrorIs(err, ErrUnauthorized)
	_, err = ct.execute("owner", &ExecuteMsg{})
	require.ErrorIs(err, ErrInvalidMessage)
}
