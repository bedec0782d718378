package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/jmoiron/sqlx"
)

// pg は動的クエリ組み立て用のPostgreSQLダイアレクト。
var pg = goqu.Dialect("postgres")

// carColumns は画像本体を除く車両カラム。
const carColumns = `id, make, model, color, COALESCE(image_url, '') AS image_url, COALESCE(image_mime, '') AS image_mime, created_at, updated_at`

// carRow はcarsテーブルの1行（画像本体を除く）。
type carRow struct {
	ID        string    `db:"id"`
	Make      string    `db:"make"`
	Model     string    `db:"model"`
	Color     string    `db:"color"`
	ImageURL  string    `db:"image_url"`
	ImageMime string    `db:"image_mime"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *carRow) toModel() *model.Car {
	return &model.Car{
		ID:        r.ID,
		Make:      r.Make,
		Model:     r.Model,
		Color:     r.Color,
		ImageURL:  r.ImageURL,
		ImageMime: r.ImageMime,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PostgresCarRepo はPostgreSQLを使用した車両カタログリポジトリ。
type PostgresCarRepo struct {
	db *sqlx.DB
}

// NewPostgresCarRepo はPostgresCarRepoを生成する。
func NewPostgresCarRepo(db *sqlx.DB) *PostgresCarRepo {
	return &PostgresCarRepo{db: db}
}

// Create は車両を作成する。IDはストア側で採番しcarに設定する。
func (r *PostgresCarRepo) Create(ctx context.Context, car *model.Car) error {
	var row carRow
	err := r.db.GetContext(ctx, &row,
		`INSERT INTO cars (make, model, color)
		 VALUES ($1, $2, $3)
		 RETURNING `+carColumns,
		car.Make, car.Model, car.Color,
	)
	if err != nil {
		return fmt.Errorf("failed to insert car: %w", err)
	}

	car.ID = row.ID
	car.CreatedAt = row.CreatedAt
	car.UpdatedAt = row.UpdatedAt
	return nil
}

// FindByID は指定IDの車両を取得する（画像本体は含まない）。見つからない場合はnilを返す。
func (r *PostgresCarRepo) FindByID(ctx context.Context, id string) (*model.Car, error) {
	var row carRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+carColumns+` FROM cars WHERE id = $1`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find car: %w", err)
	}
	return row.toModel(), nil
}

// List は全車両を登録順（created_at, id）で返す。
func (r *PostgresCarRepo) List(ctx context.Context) ([]*model.Car, error) {
	return r.selectCars(ctx, r.baseQuery())
}

// ListByIDs は指定IDの車両を返す。存在しないIDは無視する。
func (r *PostgresCarRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Car, error) {
	if len(ids) == 0 {
		return []*model.Car{}, nil
	}
	return r.selectCars(ctx, r.baseQuery().Where(goqu.C("id").In(ids)))
}

// Search は管理画面の検索条件に一致する車両を登録順で返す。
// Queryはメーカー名・モデル名への大文字小文字を区別しない部分一致、Colorは大文字小文字を区別しない完全一致。
func (r *PostgresCarRepo) Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	ds := r.baseQuery()

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("make").ILike(pattern),
			goqu.C("model").ILike(pattern),
		))
	}
	if color := strings.TrimSpace(filter.Color); color != "" {
		ds = ds.Where(goqu.Func("lower", goqu.C("color")).Eq(strings.ToLower(color)))
	}

	return r.selectCars(ctx, ds)
}

// Update はメーカー・モデル・色を更新する。見つからない場合はnilを返す。
func (r *PostgresCarRepo) Update(ctx context.Context, id string, input model.CarInput) (*model.Car, error) {
	var row carRow
	err := r.db.GetContext(ctx, &row,
		`UPDATE cars SET make = $2, model = $3, color = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+carColumns,
		id, input.Make, input.Model, input.Color,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update car: %w", err)
	}
	return row.toModel(), nil
}

// Delete は車両を削除する。削除した場合はtrueを返す。
// rentalsは外部キーを持たないため、予約履歴はそのまま残る。
func (r *PostgresCarRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete car: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Count は車両数を返す。
func (r *PostgresCarRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM cars`); err != nil {
		return 0, fmt.Errorf("failed to count cars: %w", err)
	}
	return count, nil
}

// UpdateImage は画像の取得元URLと画像本体を更新する。
func (r *PostgresCarRepo) UpdateImage(ctx context.Context, id, sourceURL string, data []byte, mime string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cars SET image_url = $2, image_data = $3, image_mime = $4, updated_at = now()
		 WHERE id = $1`,
		id, sourceURL, data, mime,
	)
	if err != nil {
		return fmt.Errorf("failed to update car image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrCarNotFound
	}
	return nil
}

// FindImage は画像本体とMIMEタイプを返す。未登録の場合はnil, "", nilを返す。
func (r *PostgresCarRepo) FindImage(ctx context.Context, id string) ([]byte, string, error) {
	var (
		data []byte
		mime sql.NullString
	)
	err := r.db.QueryRowxContext(ctx,
		`SELECT image_data, image_mime FROM cars WHERE id = $1`,
		id,
	).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to find car image: %w", err)
	}
	if !mime.Valid {
		return nil, "", nil
	}
	return data, mime.String, nil
}

func (r *PostgresCarRepo) baseQuery() *goqu.SelectDataset {
	return pg.From("cars").
		Select(
			goqu.C("id"),
			goqu.C("make"),
			goqu.C("model"),
			goqu.C("color"),
			goqu.L("COALESCE(image_url, '')").As("image_url"),
			goqu.L("COALESCE(image_mime, '')").As("image_mime"),
			goqu.C("created_at"),
			goqu.C("updated_at"),
		).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true)
}

func (r *PostgresCarRepo) selectCars(ctx context.Context, ds *goqu.SelectDataset) ([]*model.Car, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build car query: %w", err)
	}

	var rows []carRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}

	cars := make([]*model.Car, 0, len(rows))
	for i := range rows {
		cars = append(cars, rows[i].toModel())
	}
	return cars, nil
}

// escapeLike はLIKEパターンのワイルドカード文字をエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// compile-time interface check
var _ CarRepository = (*PostgresCarRepo)(nil)
