package api

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/config"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// Service is the JSON-RPC face of the API, registered as "toknswap".
//
//	curl -X POST --data '{
//	    "jsonrpc":"2.0",
//	    "id"     :1,
//	    "method" :"toknswap.GetAmountsOut",
//	    "params" :{"amount":"1000","path":["0x...","0x..."]}
//	}' -H 'content-type:application/json;' http://127.0.0.1:8545/rpc
type Service struct {
	reader Reader
}

type PairsArgs struct{}

type PairsReply struct {
	Pairs []model.Pair `json:"pairs"`
}

func (s *Service) Pairs(_ *http.Request, _ *PairsArgs, reply *PairsReply) error {
	reply.Pairs = s.reader.Pairs()
	return nil
}

type GetPairArgs struct {
	TokenA string `json:"tokenA"`
	TokenB string `json:"tokenB"`
}

type GetPairReply struct {
	Pair model.Pair `json:"pair"`
}

func (s *Service) GetPair(_ *http.Request, args *GetPairArgs, reply *GetPairReply) error {
	path, err := config.ParseAddresses([]string{args.TokenA, args.TokenB})
	if err != nil {
		return errors.Join(amm.ErrValidation, err)
	}
	if len(path) != 2 {
		return errors.Join(amm.ErrValidation, errors.New("two token addresses are required"))
	}
	pair, ok := s.reader.Pair(path[0], path[1])
	if !ok {
		return errors.New("pair not found")
	}
	reply.Pair = pair
	return nil
}

// AmountsArgs carries a decimal amount and a token path.
type AmountsArgs struct {
	Amount string   `json:"amount"`
	Path   []string `json:"path"`
}

type AmountsReply struct {
	Amounts []string `json:"amounts"`
}

func (s *Service) GetAmountsOut(_ *http.Request, args *AmountsArgs, reply *AmountsReply) error {
	return amounts(args, reply, s.reader.GetAmountsOut)
}

func (s *Service) GetAmountsIn(_ *http.Request, args *AmountsArgs, reply *AmountsReply) error {
	return amounts(args, reply, s.reader.GetAmountsIn)
}

func amounts(args *AmountsArgs, reply *AmountsReply, fn func(*uint256.Int, []common.Address) ([]*uint256.Int, error)) error {
	amount, err := config.ParseAmount(args.Amount)
	if err != nil {
		return errors.Join(amm.ErrValidation, err)
	}
	path, err := config.ParseAddresses(args.Path)
	if err != nil {
		return errors.Join(amm.ErrValidation, err)
	}
	out, err := fn(amount, path)
	if err != nil {
		return err
	}
	reply.Amounts = decimals(out)
	return nil
}
