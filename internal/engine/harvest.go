package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"positionTools/internal/model"
	"positionTools/internal/univ3math"
)

// harvest drains every owed amount (fees plus any freed principal) for the
// position to the recipient. The max-uint128 caps make the collect total
// rather than partial, whatever is owed at execution time. The returned
// amounts are the only ground truth; owed values read beforehand may
// already be stale.
func (m *Mutator) harvest(ctx context.Context, id *big.Int, recipient common.Address) (model.CollectResult, error) {
	res, err := m.registry.Collect(ctx, id, recipient, univ3math.MaxUint128, univ3math.MaxUint128)
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("collect %s: %w", id, err)
	}
	if res.Amount0 == nil {
		res.Amount0 = big.NewInt(0)
	}
	if res.Amount1 == nil {
		res.Amount1 = big.NewInt(0)
	}
	return res, nil
}
