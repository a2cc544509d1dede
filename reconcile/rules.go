package reconcile

import "github.com/streamdroplets/droplets-engine/integrations"

// dropZeroAmount removes integration events carrying a zero amount —
// the universal pre-filter every protocol needs before matching (§4.10:
// "drop zero-amount integration events").
func dropZeroAmount(records []IntegrationRecord) []IntegrationRecord {
	out := make([]IntegrationRecord, 0, len(records))
	for _, r := range records {
		if r.Event.Amount != nil && r.Event.Amount.Sign() != 0 {
			out = append(out, r)
		}
	}
	return out
}

// cancelProtectedPairs removes symmetric deposit_protected/
// withdraw_protected pairs sharing a (tx_hash, user) — internal
// collateral transitions within a 4626 lending market that never touch
// the vault side at all (§4.10). Any amount left without a counterpart
// on the other side survives to the ordinary matching pass.
func cancelProtectedPairs(records []IntegrationRecord) []IntegrationRecord {
	type groupKey struct {
		tx   string
		user string
	}
	deposits := map[groupKey][]int{}
	withdraws := map[groupKey][]int{}
	for i, r := range records {
		k := groupKey{tx: r.Event.TxHash.Hex(), user: normalizeAddress(r.Event.User.Hex())}
		switch r.Event.Kind {
		case integrations.EventDepositProtected:
			deposits[k] = append(deposits[k], i)
		case integrations.EventWithdrawProtected:
			withdraws[k] = append(withdraws[k], i)
		}
	}

	dropped := make(map[int]bool)
	for k, depIdxs := range deposits {
		withIdxs := withdraws[k]
		for _, di := range depIdxs {
			for wj, wi := range withIdxs {
				if dropped[wi] || records[di].Event.Amount.Cmp(records[wi].Event.Amount) != 0 {
					continue
				}
				dropped[di] = true
				dropped[wi] = true
				withIdxs = append(withIdxs[:wj], withIdxs[wj+1:]...)
				break
			}
		}
	}

	out := make([]IntegrationRecord, 0, len(records))
	for i, r := range records {
		if !dropped[i] {
			out = append(out, r)
		}
	}
	return out
}
