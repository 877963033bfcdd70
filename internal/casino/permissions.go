package casino

import (
	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

// BuildPermissionAccounts lists the remaining accounts that let the wager
// instruction grant player decrypt access: for the payout handle and then
// each present result handle, (allowance PDA, writable) followed by
// (player, read-only). With no payout handle the program skips the grant.
func (p *Program) BuildPermissionAccounts(payout *domain.Handle, results []*domain.Handle, player solana.PublicKey) []solana.AccountMeta {
	if payout == nil {
		return []solana.AccountMeta{}
	}

	metas := make([]solana.AccountMeta, 0, 2*(1+len(results)))
	metas = append(metas,
		solana.Writable(p.PermissionAddress(*payout, player)),
		solana.ReadOnly(player),
	)
	for _, h := range results {
		if h == nil {
			continue
		}
		metas = append(metas,
			solana.Writable(p.PermissionAddress(*h, player)),
			solana.ReadOnly(player),
		)
	}
	return metas
}
