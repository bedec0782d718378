package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/hitoshi/rentacar/internal/database"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/jmoiron/sqlx"
)

const rentalColumns = `id, car_id, user_id, user_name, rent_date, return_date, created_at`

// rentalRow はrentalsテーブルの1行。
type rentalRow struct {
	ID         string     `db:"id"`
	CarID      string     `db:"car_id"`
	UserID     string     `db:"user_id"`
	UserName   string     `db:"user_name"`
	RentDate   model.Date `db:"rent_date"`
	ReturnDate model.Date `db:"return_date"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (r *rentalRow) toModel() *model.Rental {
	return &model.Rental{
		ID:         r.ID,
		CarID:      r.CarID,
		UserID:     r.UserID,
		UserName:   r.UserName,
		RentDate:   r.RentDate,
		ReturnDate: r.ReturnDate,
		CreatedAt:  r.CreatedAt,
	}
}

// PostgresRentalRepo はPostgreSQLを使用したレンタル台帳リポジトリ。
type PostgresRentalRepo struct {
	db *sqlx.DB
}

// NewPostgresRentalRepo はPostgresRentalRepoを生成する。
func NewPostgresRentalRepo(db *sqlx.DB) *PostgresRentalRepo {
	return &PostgresRentalRepo{db: db}
}

// CreateIfAvailable は車両の存在確認と期間重複チェックを1トランザクションで行い、予約を台帳に追加する。
//
// 車両行をFOR UPDATEでロックするため、同じ車両への予約は直列化される。
// 重複判定は両端を含む日付区間の交差で行い、排他制約rentals_no_overlapでも同じ条件を保証する。
func (r *PostgresRentalRepo) CreateIfAvailable(ctx context.Context, rental *model.Rental) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	err = tx.GetContext(ctx, &lockedID,
		`SELECT id FROM cars WHERE id = $1 FOR UPDATE`,
		rental.CarID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCarNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock car: %w", err)
	}

	var created struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	err = tx.GetContext(ctx, &created,
		`INSERT INTO rentals (car_id, user_id, user_name, rent_date, return_date)
		 SELECT $1::uuid, $2::uuid, $3::varchar, $4::date, $5::date
		 WHERE NOT EXISTS (
		     SELECT 1 FROM rentals
		     WHERE car_id = $1::uuid
		       AND rent_date <= $5::date
		       AND return_date >= $4::date
		 )
		 RETURNING id, created_at`,
		rental.CarID, rental.UserID, rental.UserName, rental.RentDate, rental.ReturnDate,
	)
	if errors.Is(err, sql.ErrNoRows) || database.IsExclusionViolation(err, "rentals_no_overlap") {
		return ErrRentalConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert rental: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if database.IsExclusionViolation(err, "rentals_no_overlap") {
			return ErrRentalConflict
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rental.ID = created.ID
	rental.CreatedAt = created.CreatedAt
	return nil
}

// ListByCarIDs は指定車両群の予約を車両ID・貸出日順に返す。
func (r *PostgresRentalRepo) ListByCarIDs(ctx context.Context, carIDs []string) ([]*model.Rental, error) {
	if len(carIDs) == 0 {
		return []*model.Rental{}, nil
	}

	query, args, err := pg.From("rentals").
		Select(
			goqu.C("id"),
			goqu.C("car_id"),
			goqu.C("user_id"),
			goqu.C("user_name"),
			goqu.C("rent_date"),
			goqu.C("return_date"),
			goqu.C("created_at"),
		).
		Where(goqu.C("car_id").In(carIDs)).
		Order(goqu.C("car_id").Asc(), goqu.C("rent_date").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build rental query: %w", err)
	}

	return r.selectRentals(ctx, "failed to list rentals by car", query, args...)
}

// ListByUserID は指定ユーザーの予約を返す。
func (r *PostgresRentalRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Rental, error) {
	return r.selectRentals(ctx, "failed to list rentals by user",
		`SELECT `+rentalColumns+` FROM rentals WHERE user_id = $1`,
		userID,
	)
}

// ListAll は全予約を貸出日の新しい順に返す。
func (r *PostgresRentalRepo) ListAll(ctx context.Context) ([]*model.Rental, error) {
	return r.selectRentals(ctx, "failed to list rentals",
		`SELECT `+rentalColumns+` FROM rentals ORDER BY rent_date DESC, created_at DESC`,
	)
}

// CountActiveOn は指定日を期間に含む予約の件数を返す（両端を含む）。
func (r *PostgresRentalRepo) CountActiveOn(ctx context.Context, date model.Date) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT count(*) FROM rentals WHERE rent_date <= $1::date AND return_date >= $1::date`,
		date,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count active rentals: %w", err)
	}
	return count, nil
}

func (r *PostgresRentalRepo) selectRentals(ctx context.Context, errMsg, query string, args ...any) ([]*model.Rental, error) {
	var rows []rentalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}

	rentals := make([]*model.Rental, 0, len(rows))
	for i := range rows {
		rentals = append(rentals, rows[i].toModel())
	}
	return rentals, nil
}

// compile-time interface check
var _ RentalRepository = (*PostgresRentalRepo)(nil)
