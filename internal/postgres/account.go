package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/copperline/billingdesk/internal/domain"
)

// AccountStore implements domain.AccountRepository using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that AccountStore implements domain.AccountRepository.
var _ domain.AccountRepository = (*AccountStore)(nil)

// NewAccountStore creates a new PostgreSQL-backed account repository.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// FindAccount returns the account by id.
func (s *AccountStore) FindAccount(ctx context.Context, id int64) (*domain.BillableAccount, error) {
	const op = "AccountStore.FindAccount"

	const query = `
		SELECT id, email, name, provider_customer_id, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	var account domain.BillableAccount
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.ProviderCustomerID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound(op, "account", fmt.Sprintf("%d", id))
		}
		return nil, domain.Internal(err, op, "failed to load account")
	}

	return &account, nil
}

// FindSubscriptions returns the account's subscription rows in insertion
// order, optionally narrowed to a single subscription id.
func (s *AccountStore) FindSubscriptions(ctx context.Context, accountID int64, subscriptionID *int64) ([]domain.LocalSubscription, error) {
	const op = "AccountStore.FindSubscriptions"

	const query = `
		SELECT id, account_id, provider_subscription_id, plan_label,
		       trial_ends_at, ends_at, created_at, updated_at
		FROM subscriptions
		WHERE account_id = $1
		  AND ($2::bigint IS NULL OR id = $2)
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, accountID, subscriptionID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load subscriptions")
	}
	defer rows.Close()

	subs := []domain.LocalSubscription{}
	for rows.Next() {
		var sub domain.LocalSubscription
		if err := rows.Scan(
			&sub.ID,
			&sub.AccountID,
			&sub.ProviderSubscriptionID,
			&sub.PlanLabel,
			&sub.TrialEndsAt,
			&sub.EndsAt,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, domain.Internal(err, op, "failed to scan subscription")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read subscriptions")
	}

	return subs, nil
}

// UpdateSubscriptionPlanLabel overwrites the stored plan label.
func (s *AccountStore) UpdateSubscriptionPlanLabel(ctx context.Context, subscriptionID int64, label string) error {
	const op = "AccountStore.UpdateSubscriptionPlanLabel"

	const query = `
		UPDATE subscriptions
		SET plan_label = $2, updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, subscriptionID, label)
	if err != nil {
		return domain.Internal(err, op, "failed to update plan label")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "subscription", fmt.Sprintf("%d", subscriptionID))
	}

	return nil
}
