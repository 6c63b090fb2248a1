package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// authorize verifies that caller is the position's registered owner or its
// approved delegate and returns the owner. Ownership and approval are
// re-read from the registry on every call; approval can change between
// invocations, so nothing here is cached.
func (m *Mutator) authorize(ctx context.Context, id *big.Int, caller common.Address) (common.Address, error) {
	owner, err := m.registry.OwnerOf(ctx, id)
	if err != nil {
		return common.Address{}, fmt.Errorf("read owner of %s: %w", id, err)
	}
	if caller == owner {
		return owner, nil
	}

	approved, err := m.registry.GetApproved(ctx, id)
	if err != nil {
		return common.Address{}, fmt.Errorf("read approval of %s: %w", id, err)
	}
	if approved != (common.Address{}) && caller == approved {
		return owner, nil
	}

	return common.Address{}, fmt.Errorf("position %s caller %s: %w", id, caller.Hex(), ErrNotOwnerOrApproved)
}
