package factory

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
)

// EIP-1167 minimal proxy creation code around a 20-byte implementation.
var (
	clonePrefix = common.FromHex("0x3d602d80600a3d3981f3363d3d373d3d3d363d73")
	cloneSuffix = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")
)

// CloneInitCode returns the minimal proxy creation code delegating to impl.
func CloneInitCode(impl common.Address) []byte {
	code := make([]byte, 0, len(clonePrefix)+common.AddressLength+len(cloneSuffix))
	code = append(code, clonePrefix...)
	code = append(code, impl.Bytes()...)
	return append(code, cloneSuffix...)
}

// PairSalt is keccak256(token0 ++ token1) of a canonically ordered pair.
func PairSalt(token0, token1 common.Address) common.Hash {
	return crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
}

// ComputeAddress returns the CREATE2 address deployer would clone impl to
// for the pair (a, b). The result does not depend on argument order.
func ComputeAddress(deployer, impl, a, b common.Address) (common.Address, error) {
	token0, token1, err := amm.SortTokens(a, b)
	if err != nil {
		return common.Address{}, err
	}
	salt := PairSalt(token0, token1)
	return crypto.CreateAddress2(deployer, salt, crypto.Keccak256(CloneInitCode(impl))), nil
}
