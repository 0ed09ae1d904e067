package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/shopspring/decimal"
)

type MySQLSellerRepo struct{ db *sql.DB }

func NewMySQLSellerRepo(db *sql.DB) *MySQLSellerRepo { return &MySQLSellerRepo{db: db} }

func (r *MySQLSellerRepo) GetSellerAccount(ctx context.Context, sellerID string) (*entity.SellerAccount, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT seller_id,account_ref,verified,commission_rate
FROM seller_accounts WHERE seller_id = ?`, sellerID)

	var acct entity.SellerAccount
	var rate sql.NullString
	if err := row.Scan(&acct.SellerID, &acct.AccountRef, &acct.Verified, &rate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("seller %s: %w", sellerID, ErrNotFound)
		}
		return nil, err
	}
	if rate.Valid {
		d, err := decimal.NewFromString(rate.String)
		if err != nil {
			return nil, fmt.Errorf("seller %s commission rate %q: %w", sellerID, rate.String, err)
		}
		acct.CommissionRate = &d
	}
	return &acct, nil
}

var _ usecase.SellerDirectory = (*MySQLSellerRepo)(nil)
