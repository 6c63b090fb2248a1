package scan

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"positionTools/internal/model"
)

// PositionSource reads the position registry. Satisfied by the registry
// adapter.
type PositionSource interface {
	TotalSupply(ctx context.Context) (*big.Int, error)
	TokenByIndex(ctx context.Context, index *big.Int) (*big.Int, error)
	PositionState(ctx context.Context, id *big.Int) (model.Position, error)
}

// RunConfig holds runtime settings for a scan.
type RunConfig struct {
	// Count is how many candidate positions to find.
	Count int
	// MaxProbes bounds the random sampling so a sparse registry cannot
	// spin the scan forever.
	MaxProbes    int
	Seed         int64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Scanner samples random positions from the registry and keeps the ones
// that are worth mutating: live liquidity with uncollected fees.
type Scanner struct {
	cfg    RunConfig
	source PositionSource
	logger *zap.Logger
}

// NewScanner builds a Scanner with its dependencies.
func NewScanner(cfg RunConfig, source PositionSource, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{cfg: cfg, source: source, logger: logger}
}

// Run samples the registry until Count candidates are found or MaxProbes
// samples were spent, whichever happens first.
func (s *Scanner) Run(ctx context.Context) ([]model.Position, error) {
	if s.source == nil {
		return nil, fmt.Errorf("position source is nil")
	}
	if s.cfg.Count <= 0 {
		return nil, fmt.Errorf("count must be greater than zero")
	}
	maxProbes := s.cfg.MaxProbes
	if maxProbes <= 0 {
		maxProbes = s.cfg.Count * 100
	}

	var total *big.Int
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		total, err = s.source.TotalSupply(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read total supply: %w", err)
	}
	if total.Sign() == 0 {
		return nil, nil
	}
	if !total.IsInt64() {
		return nil, fmt.Errorf("total supply does not fit in int64: %s", total)
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	s.logger.Info("scan registry",
		zap.String("total_supply", total.String()),
		zap.Int("count", s.cfg.Count),
		zap.Int64("seed", seed),
	)

	found := make([]model.Position, 0, s.cfg.Count)
	seen := make(map[string]struct{})

	for probes := 0; len(found) < s.cfg.Count && probes < maxProbes; probes++ {
		select {
		case <-ctx.Done():
			return found, ctx.Err()
		default:
		}

		index := big.NewInt(rng.Int63n(total.Int64()))

		var id *big.Int
		err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			id, err = s.source.TokenByIndex(ctx, index)
			return err
		})
		if err != nil {
			return found, fmt.Errorf("token at index %s: %w", index, err)
		}

		if _, ok := seen[id.String()]; ok {
			continue
		}
		seen[id.String()] = struct{}{}

		var pos model.Position
		err = withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			pos, err = s.source.PositionState(ctx, id)
			return err
		})
		if err != nil {
			return found, fmt.Errorf("read position %s: %w", id, err)
		}

		if !candidate(pos) {
			continue
		}

		s.logger.Info("found candidate position",
			zap.String("position", id.String()),
			zap.String("liquidity", pos.Liquidity.String()),
			zap.String("owed0", pos.TokensOwed0.String()),
			zap.String("owed1", pos.TokensOwed1.String()),
		)
		found = append(found, pos)
	}

	return found, nil
}

// candidate keeps positions with live liquidity and something to collect.
func candidate(pos model.Position) bool {
	if pos.Liquidity == nil || pos.Liquidity.Sign() <= 0 {
		return false
	}
	owed0 := pos.TokensOwed0 != nil && pos.TokensOwed0.Sign() > 0
	owed1 := pos.TokensOwed1 != nil && pos.TokensOwed1.Sign() > 0
	return owed0 || owed1
}
