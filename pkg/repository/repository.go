package repository

import (
	"sort"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
)

var (
	_ interfaces.ClaimRepository = (*Memory)(nil)
	_ interfaces.ClaimRepository = (*SQLite)(nil)
	_ interfaces.ClaimRepository = (*Firestore)(nil)
)

// filterClaims applies status filter, newest-first order and limit in memory
func filterClaims(claims []*model.Claim, opts interfaces.ListOptions) []*model.Claim {
	result := make([]*model.Claim, 0, len(claims))
	for _, c := range claims {
		if opts.Status != "" && c.Status != opts.Status {
			continue
		}
		result = append(result, c)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}
