package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// suggestMaxDistance is the edit-distance gate for treating two counterparty
// names as probable spellings of the same person.
const suggestMaxDistance = 2

// People answers questions about counterparty names, so add flows can warn
// before a typo splits one person's ledger across two spellings.
type People struct {
	Loans *repository.LoanRepo
}

// Suggest returns an existing person name that is a near-miss of name, and
// whether one was found. An exact match (case-insensitive) means the name is
// already established, so no suggestion is made.
func (p *People) Suggest(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, nil
	}
	persons, err := p.Loans.Persons(ctx)
	if err != nil {
		return "", false, fmt.Errorf("suggest: %w", err)
	}

	lower := strings.ToLower(name)
	best := ""
	bestDist := suggestMaxDistance + 1
	for _, existing := range persons {
		el := strings.ToLower(existing)
		if el == lower {
			return "", false, nil
		}
		if d := levenshtein.ComputeDistance(lower, el); d < bestDist {
			best = existing
			bestDist = d
		}
	}
	if best == "" {
		return "", false, nil
	}
	return best, true, nil
}
