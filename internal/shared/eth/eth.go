package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
)

// ConnectEthereum disca o nó JSON-RPC e resolve o chain id.
// want != 0 precisa bater com o que o nó informa.
func ConnectEthereum(ctx context.Context, url string, want int64) (*ethclient.Client, *big.Int, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", url, err)
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("chain id: %w", err)
	}
	if want != 0 && id.Int64() != want {
		client.Close()
		return nil, nil, fmt.Errorf("chain id mismatch: node reports %s, configured %d", id, want)
	}

	return client, id, nil
}
