package main

import (
	"context"
	"fmt"

	"github.com/MixinNetwork/fractional/chain"
	"github.com/MixinNetwork/fractional/collectible"
	"github.com/MixinNetwork/fractional/fractional"
	"github.com/MixinNetwork/fractional/fungible"
	"github.com/MixinNetwork/fractional/store"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	propertyCollection = "DEVNET:COLLECTION"
	propertyFractional = "DEVNET:FRACTIONAL"
)

// Node is one local chain with the three contract codes registered in a
// fixed order, so that stored instances keep pointing at the same code.
type Node struct {
	store    *store.BadgerStore
	chain    *chain.Chain
	registry *prometheus.Registry

	collection string
	fractional string
}

func OpenNode(ctx context.Context, path string) (*Node, error) {
	db, err := store.OpenBadger(ctx, path)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	c, err := chain.NewChain(db, reg)
	if err != nil {
		db.Close()
		return nil, err
	}
	if id := c.StoreCode(fungible.NewContract()); id != 1 {
		panic(id)
	}
	c.StoreCode(collectible.NewContract())
	c.StoreCode(fractional.NewContract(reg))

	n := &Node{store: db, chain: c, registry: reg}
	col, err := db.ReadProperty([]byte(propertyCollection))
	if err != nil {
		db.Close()
		return nil, err
	}
	frac, err := db.ReadProperty([]byte(propertyFractional))
	if err != nil {
		db.Close()
		return nil, err
	}
	n.collection, n.fractional = string(col), string(frac)
	return n, nil
}

func (n *Node) Close() error {
	return n.store.Close()
}

func (n *Node) Initialized() bool {
	return n.collection != "" && n.fractional != ""
}

// Bootstrap instantiates the devnet collection and the orchestrator once,
// their addresses are kept as store properties.
func (n *Node) Bootstrap(ctx context.Context, operator string, fc fractional.InstantiateMsg) error {
	if n.Initialized() {
		return nil
	}
	col, _, err := n.chain.InstantiateContract(ctx, 2, operator, &collectible.InstantiateMsg{
		Name:   "Devnet Collection",
		Symbol: "DNFT",
		Minter: operator,
	}, "devnet collection")
	if err != nil {
		return err
	}
	frac, _, err := n.chain.InstantiateContract(ctx, 3, operator, &fc, "fractional")
	if err != nil {
		return err
	}
	err = n.store.WriteProperty([]byte(propertyCollection), []byte(col))
	if err != nil {
		return err
	}
	err = n.store.WriteProperty([]byte(propertyFractional), []byte(frac))
	if err != nil {
		return err
	}
	n.collection, n.fractional = col, frac
	return nil
}

func (n *Node) require() error {
	if !n.Initialized() {
		return fmt.Errorf("%s not initialized, run %s init first", programName, programName)
	}
	return nil
}
