package codec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rickgao/pairstream/internal/model"
)

// Schema is the canonical schema string registered with the ledger.
const Schema = "uint64 timestamp, string pair, string chain, uint256 priceUsd, uint256 liquidity, uint256 volume24h, int32 priceChange1h, int32 priceChange24h"

// Errors
var (
	ErrNilRecord  = errors.New("nil record")
	ErrNilAmount  = errors.New("nil fixed-point amount")
	ErrOutOfRange = errors.New("amount exceeds uint256")
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var arguments = mustArguments(
	"uint64", "string", "string", "uint256", "uint256", "uint256", "int32", "int32",
)

func mustArguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("codec: invalid abi type %q: %v", t, err))
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

// SchemaID returns the ledger schema id for a schema string.
func SchemaID(schema string) common.Hash {
	return crypto.Keccak256Hash([]byte(schema))
}

// Encode serializes a record into the ledger wire format.
func Encode(r *model.PriceRecord) ([]byte, error) {
	if r == nil {
		return nil, ErrNilRecord
	}
	for name, v := range map[string]*big.Int{
		"priceUsd":  r.PriceUSD,
		"liquidity": r.LiquidityUSD,
		"volume24h": r.Volume24hUSD,
	} {
		if v == nil {
			return nil, fmt.Errorf("%s: %w", name, ErrNilAmount)
		}
		if v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrOutOfRange)
		}
	}

	data, err := arguments.Pack(
		r.Timestamp,
		r.Pair,
		r.Chain,
		r.PriceUSD,
		r.LiquidityUSD,
		r.Volume24hUSD,
		r.PriceChange1h,
		r.PriceChange24h,
	)
	if err != nil {
		return nil, fmt.Errorf("pack record: %w", err)
	}
	return data, nil
}

// Decode parses ledger wire bytes back into a record.
func Decode(data []byte) (*model.PriceRecord, error) {
	values, err := arguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack record: %w", err)
	}
	if len(values) != len(arguments) {
		return nil, fmt.Errorf("unpack record: got %d fields, want %d", len(values), len(arguments))
	}

	r := &model.PriceRecord{}
	var ok bool
	if r.Timestamp, ok = values[0].(uint64); !ok {
		return nil, fmt.Errorf("timestamp: unexpected type %T", values[0])
	}
	if r.Pair, ok = values[1].(string); !ok {
		return nil, fmt.Errorf("pair: unexpected type %T", values[1])
	}
	if r.Chain, ok = values[2].(string); !ok {
		return nil, fmt.Errorf("chain: unexpected type %T", values[2])
	}
	if r.PriceUSD, ok = values[3].(*big.Int); !ok {
		return nil, fmt.Errorf("priceUsd: unexpected type %T", values[3])
	}
	if r.LiquidityUSD, ok = values[4].(*big.Int); !ok {
		return nil, fmt.Errorf("liquidity: unexpected type %T", values[4])
	}
	if r.Volume24hUSD, ok = values[5].(*big.Int); !ok {
		return nil, fmt.Errorf("volume24h: unexpected type %T", values[5])
	}
	if r.PriceChange1h, ok = values[6].(int32); !ok {
		return nil, fmt.Errorf("priceChange1h: unexpected type %T", values[6])
	}
	if r.PriceChange24h, ok = values[7].(int32); !ok {
		return nil, fmt.Errorf("priceChange24h: unexpected type %T", values[7])
	}
	return r, nil
}
