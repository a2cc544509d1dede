package dbstore

import (
	"context"
	"fmt"
)

// UpsertIntegrationPosition records a derived per-user position for one
// protocol (§3, §4.7). Positions are rebuildable from raw events so a
// plain upsert (no history) is sufficient.
func (s *Store) UpsertIntegrationPosition(ctx context.Context, p IntegrationPosition) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO integration_positions (protocol_id, user_address, position_shares, underlying_xtoken_amount, usd_value, block_number, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (protocol_id, user_address) DO UPDATE SET
			position_shares = EXCLUDED.position_shares,
			underlying_xtoken_amount = EXCLUDED.underlying_xtoken_amount,
			usd_value = EXCLUDED.usd_value,
			block_number = EXCLUDED.block_number,
			ts = EXCLUDED.ts`,
		p.ProtocolID, p.UserAddress, p.PositionShares, p.UnderlyingXTokenAmount, p.USDValue, p.BlockNumber, p.Timestamp)
	if err != nil {
		return fmt.Errorf("dbstore: upsert integration position: %w", err)
	}
	return nil
}

// IntegrationPositionsForUser returns every protocol position held by
// one address, used by the Daily Snapshot Engine's step 3 (§4.8).
func (s *Store) IntegrationPositionsForUser(ctx context.Context, address string) ([]IntegrationPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT protocol_id, user_address, position_shares, underlying_xtoken_amount, usd_value, block_number, ts
		FROM integration_positions WHERE user_address = $1`, address)
	if err != nil {
		return nil, fmt.Errorf("dbstore: integration positions for user: %w", err)
	}
	defer rows.Close()

	var out []IntegrationPosition
	for rows.Next() {
		var p IntegrationPosition
		if err := rows.Scan(&p.ProtocolID, &p.UserAddress, &p.PositionShares, &p.UnderlyingXTokenAmount, &p.USDValue, &p.BlockNumber, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("dbstore: scan integration position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DistinctUsersWithBalanceOrPosition returns every address with a
// positive CurrentBalance on any chain, or an integration position,
// excluding addresses in excluded_addresses — the snapshot engine's
// per-day iteration set (§4.8 "Per address A not in Excluded").
func (s *Store) DistinctUsersWithBalanceOrPosition(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address FROM current_balances WHERE shares > 0
		UNION
		SELECT user_address FROM integration_positions
		EXCEPT
		SELECT address FROM excluded_addresses`)
	if err != nil {
		return nil, fmt.Errorf("dbstore: distinct users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("dbstore: scan address: %w", err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}
