package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ftchann/clmm-simulator/lib/pool"
	"github.com/ftchann/clmm-simulator/lib/position"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps encoded pool and position accounts in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pgPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pgPool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS clmm_pools (
	pool_address   TEXT PRIMARY KEY,
	amm_config     TEXT NOT NULL,
	token_mint_0   TEXT NOT NULL,
	token_mint_1   TEXT NOT NULL,
	tick_spacing   INTEGER NOT NULL,
	tick_current   INTEGER NOT NULL,
	sqrt_price_x64 NUMERIC(39, 0) NOT NULL,
	liquidity      NUMERIC(39, 0) NOT NULL,
	status         SMALLINT NOT NULL,
	data           BYTEA NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS clmm_positions (
	nft_mint     TEXT PRIMARY KEY,
	pool_address TEXT NOT NULL,
	tick_lower   INTEGER NOT NULL,
	tick_upper   INTEGER NOT NULL,
	liquidity    NUMERIC(39, 0) NOT NULL,
	data         BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SavePool inserts or updates the account of the pool at address.
func (s *Store) SavePool(ctx context.Context, address solana.PublicKey, p *pool.PoolState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clmm_pools (
			pool_address, amm_config, token_mint_0, token_mint_1, tick_spacing,
			tick_current, sqrt_price_x64, liquidity, status, data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8::text::numeric, $9, $10, now(), now())
		ON CONFLICT (pool_address)
		DO UPDATE SET
			tick_current = EXCLUDED.tick_current,
			sqrt_price_x64 = EXCLUDED.sqrt_price_x64,
			liquidity = EXCLUDED.liquidity,
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = now()
	`,
		address.String(),
		p.AmmConfig.String(),
		p.TokenMint0.String(),
		p.TokenMint1.String(),
		int32(p.TickSpacing),
		p.TickCurrent,
		p.SqrtPriceX64.String(),
		p.Liquidity.String(),
		int16(p.Status),
		p.Encode(),
	)
	if err != nil {
		return fmt.Errorf("save pool %s: %w", address, err)
	}
	return nil
}

// LoadPool reads back a pool saved with SavePool. The bool is false when the
// pool is unknown.
func (s *Store) LoadPool(ctx context.Context, address solana.PublicKey) (*pool.PoolState, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM clmm_pools WHERE pool_address=$1`, address.String())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	p, err := pool.DecodePoolState(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode pool %s: %w", address, err)
	}
	return p, true, nil
}

// UpsertPositions writes every position in one batch.
func (s *Store) UpsertPositions(ctx context.Context, positions []*position.PersonalPosition) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		data, err := p.Encode()
		if err != nil {
			return fmt.Errorf("encode position %s: %w", p.NftMint, err)
		}
		batch.Queue(`
			INSERT INTO clmm_positions (
				nft_mint, pool_address, tick_lower, tick_upper, liquidity, data, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5::text::numeric, $6, now(), now())
			ON CONFLICT (nft_mint)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				data = EXCLUDED.data,
				updated_at = now()
		`,
			p.NftMint.String(),
			p.PoolID.String(),
			p.TickLowerIndex,
			p.TickUpperIndex,
			p.Liquidity.String(),
			data,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range positions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPositions returns the positions of the pool at address.
func (s *Store) LoadPositions(ctx context.Context, address solana.PublicKey) ([]*position.PersonalPosition, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM clmm_positions WHERE pool_address=$1 ORDER BY nft_mint`, address.String())
	if err != nil {
		return nil, err
	}
	datas, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	out := make([]*position.PersonalPosition, 0, len(datas))
	for _, data := range datas {
		p, err := position.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode position: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
