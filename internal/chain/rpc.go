package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RPCClient resolves transactions through a JSON-RPC node instead of an
// explorer API.
type RPCClient struct {
	client *ethclient.Client
}

func DialRPC(ctx context.Context, rawURL string) (*RPCClient, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	return &RPCClient{client: client}, nil
}

func (c *RPCClient) Lookup(ctx context.Context, reference string) (*Transaction, error) {
	tx, _, err := c.client.TransactionByHash(ctx, common.HexToHash(reference))
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rpc lookup failed: %w", err)
	}
	return fromCoreTransaction(tx)
}

func (c *RPCClient) Close() {
	c.client.Close()
}

func fromCoreTransaction(tx *types.Transaction) (*Transaction, error) {
	if tx == nil || tx.To() == nil || tx.Value() == nil {
		return nil, ErrNotFound
	}
	chainID := tx.ChainId()
	if chainID == nil || chainID.Sign() == 0 {
		// Pre-EIP-155 transactions carry no chain id.
		return nil, ErrNotFound
	}
	return &Transaction{
		Hash:    tx.Hash().Hex(),
		To:      *tx.To(),
		Value:   tx.Value(),
		ChainID: chainID,
	}, nil
}
