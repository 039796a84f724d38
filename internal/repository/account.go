package repository

import (
	"context"
	"time"

	"creaza/internal/docstore"
	"creaza/internal/models"
)

// AccountRepository stores credentials for the built-in identity provider.
// Unlike the profile repositories its reads surface errors, since a failed
// credential lookup must not look like an unknown account.
type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	SetDisplayName(ctx context.Context, id, name string) error
}

type accountRepository struct {
	docRepo[models.Account]
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store docstore.Store) AccountRepository {
	return &accountRepository{newDocRepo(store, docstore.Accounts, func(a *models.Account) time.Time { return a.CreatedAt })}
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	return r.insert(ctx, a.ID, a)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	accounts, err := r.query(ctx, docstore.Query{
		Collection: r.coll,
		Where:      []docstore.Filter{docstore.Eq("email", email)},
		Limit:      1,
	}, "find_by_email")
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.lookup(ctx, id)
}

func (r *accountRepository) SetDisplayName(ctx context.Context, id, name string) error {
	return r.update(ctx, id, map[string]any{"display_name": name})
}
