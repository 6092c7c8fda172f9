package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// SeedDefaults ensures baseline accounts exist for new databases.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	acctRepo := repository.NewAccountRepo(db)
	existing, err := acctRepo.List(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	defaults := []struct {
		name string
		kind string
	}{
		{"Cash", "cash"},
		{"Bank", "bank"},
	}
	for _, d := range defaults {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("acct:"+d.name)).String()
		a := repository.Account{ID: id, Name: d.name, Kind: d.kind}
		if err := acctRepo.Upsert(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
