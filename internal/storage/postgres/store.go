package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

// Store provides Postgres persistence for tokens, pool records, and graph
// snapshots.
type Store struct {
	pool    *pgxpool.Pool
	network string
}

func NewStore(ctx context.Context, dsn, network string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, network: network}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetToken returns the stored token record for an address.
func (s *Store) GetToken(ctx context.Context, address common.Address) (model.TokenRecord, bool, error) {
	var rec model.TokenRecord
	var addr string
	row := s.pool.QueryRow(ctx, `
		SELECT address, decimals, symbol, name, blacklisted
		FROM tokens WHERE network=$1 AND address=$2
	`, s.network, address.Hex())
	if err := row.Scan(&addr, &rec.Decimals, &rec.Symbol, &rec.Name, &rec.Blacklisted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenRecord{}, false, nil
		}
		return model.TokenRecord{}, false, err
	}
	rec.Address = common.HexToAddress(addr)
	rec.Network = s.network
	return rec, true, nil
}

// UpsertToken inserts or updates a token record.
func (s *Store) UpsertToken(ctx context.Context, record model.TokenRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (network, address, decimals, symbol, name, blacklisted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (network, address)
		DO UPDATE SET
			decimals = EXCLUDED.decimals,
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			blacklisted = EXCLUDED.blacklisted,
			updated_at = now()
	`, s.network, record.Address.Hex(), record.Decimals, record.Symbol, record.Name, record.Blacklisted)
	return err
}

// SetTokenBlacklisted flips a token's blacklist flag. Blacklisting cascades
// to every pool holding the token: the pool is marked blacklisted and its
// liquidity tiers are cleared so it drops out of graph rebuilds.
func (s *Store) SetTokenBlacklisted(ctx context.Context, address common.Address, blacklisted bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE tokens SET blacklisted=$3, updated_at=now()
		WHERE network=$1 AND address=$2
	`, s.network, address.Hex(), blacklisted); err != nil {
		return err
	}

	if blacklisted {
		if _, err := tx.Exec(ctx, `
			UPDATE pools SET
				blacklisted = true,
				tier_low = false,
				tier_medium = false,
				tier_high = false,
				updated_at = now()
			WHERE network=$1 AND (token0=$2 OR token1=$2)
		`, s.network, address.Hex()); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpsertPools inserts or updates pool records in one batch.
func (s *Store) UpsertPools(ctx context.Context, records []model.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO pools (
				network, address, variant, token0, token1, fee,
				tier_low, tier_medium, tier_high, blacklisted, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (network, address)
			DO UPDATE SET
				variant = EXCLUDED.variant,
				fee = EXCLUDED.fee,
				tier_low = EXCLUDED.tier_low,
				tier_medium = EXCLUDED.tier_medium,
				tier_high = EXCLUDED.tier_high,
				blacklisted = EXCLUDED.blacklisted,
				updated_at = now()
		`,
			s.network,
			rec.Address.Hex(),
			int16(rec.Variant),
			rec.Token0.Hex(),
			rec.Token1.Hex(),
			int64(rec.Fee),
			rec.TierLow,
			rec.TierMedium,
			rec.TierHigh,
			rec.Blacklisted,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListPoolAddresses returns the stored, non-blacklisted pool addresses.
func (s *Store) ListPoolAddresses(ctx context.Context) ([]common.Address, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address FROM pools WHERE network=$1 AND NOT blacklisted
	`, s.network)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.Address
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, common.HexToAddress(addr))
	}
	return out, rows.Err()
}

// SaveGraphSnapshot stores the serialized node-link graph as a single row
// per network, replacing any previous snapshot.
func (s *Store) SaveGraphSnapshot(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO graph_snapshots (network, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (network) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = now()
	`, s.network, data)
	return err
}

// LoadGraphSnapshot returns the stored node-link graph, if any.
func (s *Store) LoadGraphSnapshot(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `
		SELECT snapshot FROM graph_snapshots WHERE network=$1
	`, s.network)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
