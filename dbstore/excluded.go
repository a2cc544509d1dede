package dbstore

import (
	"context"
	"fmt"
)

// ZeroAddress and BurnAddress are always excluded (§3).
const (
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	BurnAddress = "0x000000000000000000000000000000000000dead"
)

// SeedExcludedAddresses inserts the static exclusion set (zero address,
// burn address, vault contracts, integration contracts) idempotently.
// Called once at startup after BuildRegistry so vault/integration
// addresses from config are always present (§3, §4.7).
func (s *Store) SeedExcludedAddresses(ctx context.Context, addrs map[string]string) error {
	addrs[ZeroAddress] = "zero address"
	addrs[BurnAddress] = "burn address"
	for addr, reason := range addrs {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO excluded_addresses (address, reason) VALUES ($1, $2)
			ON CONFLICT (address) DO NOTHING`, addr, reason)
		if err != nil {
			return fmt.Errorf("dbstore: seed excluded address %s: %w", addr, err)
		}
	}
	return nil
}

// IsExcluded reports whether address never earns droplets.
func (s *Store) IsExcluded(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM excluded_addresses WHERE address = $1)`, address).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dbstore: is excluded: %w", err)
	}
	return exists, nil
}

// ExcludedAddresses returns the full exclusion set.
func (s *Store) ExcludedAddresses(ctx context.Context) ([]ExcludedAddress, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, reason FROM excluded_addresses`)
	if err != nil {
		return nil, fmt.Errorf("dbstore: excluded addresses: %w", err)
	}
	defer rows.Close()

	var out []ExcludedAddress
	for rows.Next() {
		var e ExcludedAddress
		if err := rows.Scan(&e.Address, &e.Reason); err != nil {
			return nil, fmt.Errorf("dbstore: scan excluded address: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
