package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/pkg/database"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	pool *pgxpool.Pool
	db   dbtx
	tx   pgx.Tx // set when the repository is bound to a locked transaction
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool, db: pool}
}

const selectBorrowing = `
	SELECT id, book_id, user_id, start_date, end_date, status, admin_note, created_at, updated_at
	FROM borrowings
`

// =====================================================
// LOCKING
// =====================================================

// The lock key is a 64-bit hash of the book id. A collision only makes two
// books share a lock; it never lets two writers of the same book in together.
const lockBookQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

func (r *postgresRepository) WithinBookLock(
	ctx context.Context,
	bookID uuid.UUID,
	fn func(ctx context.Context, repo Repository) error,
) error {
	// Already inside a transaction: advisory locks are re-entrant per session
	if r.tx != nil {
		if _, err := r.tx.Exec(ctx, lockBookQuery, bookID.String()); err != nil {
			return fmt.Errorf("failed to lock book %s: %w", bookID, err)
		}
		return fn(ctx, r)
	}

	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockBookQuery, bookID.String()); err != nil {
			return fmt.Errorf("failed to lock book %s: %w", bookID, err)
		}
		return fn(ctx, &postgresRepository{pool: r.pool, db: tx, tx: tx})
	})
}

// =====================================================
// SAVE
// =====================================================

func (r *postgresRepository) Save(ctx context.Context, b *model.Borrowing) error {
	query := `
		INSERT INTO borrowings (
			id, book_id, user_id, start_date, end_date,
			status, admin_note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			admin_note = EXCLUDED.admin_note,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.BookID,
		b.UserID,
		b.Interval.StartDate,
		b.Interval.EndDate,
		string(b.Status),
		b.AdminNote,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save borrowing: %w", err)
	}

	return nil
}

// =====================================================
// FIND
// =====================================================

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Borrowing, error) {
	row := r.db.QueryRow(ctx, selectBorrowing+` WHERE id = $1`, id)

	b, err := scanBorrowing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBorrowingNotFound
		}
		return nil, fmt.Errorf("failed to get borrowing: %w", err)
	}

	return b, nil
}

func (r *postgresRepository) FindByBookAndStatuses(
	ctx context.Context,
	bookID uuid.UUID,
	statuses []model.Status,
	window *model.Interval,
) ([]*model.Borrowing, error) {
	query := selectBorrowing + ` WHERE book_id = $1 AND status = ANY($2)`
	args := []any{bookID, pq.Array(statusStrings(statuses))}

	if window != nil {
		query += ` AND start_date <= $3 AND end_date >= $4`
		args = append(args, window.EndDate, window.StartDate)
	}
	query += ` ORDER BY start_date ASC, id ASC`

	return r.queryBorrowings(ctx, query, args...)
}

func (r *postgresRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*model.Borrowing, error) {
	query := selectBorrowing + ` WHERE user_id = $1 ORDER BY created_at DESC, id ASC`
	return r.queryBorrowings(ctx, query, userID)
}

func (r *postgresRepository) FindByStatusEndingOn(
	ctx context.Context,
	status model.Status,
	day time.Time,
) ([]*model.Borrowing, error) {
	query := selectBorrowing + ` WHERE status = $1 AND end_date = $2 ORDER BY id ASC`
	return r.queryBorrowings(ctx, query, string(status), model.DateOf(day))
}

func (r *postgresRepository) List(ctx context.Context, q model.ListQuery) ([]*model.Borrowing, int, error) {
	q.Normalize()

	page, count, err := buildListQuery(q)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, count.sql, count.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count borrowings: %w", err)
	}

	list, err := r.queryBorrowings(ctx, page.sql, page.args...)
	if err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// =====================================================
// HELPERS
// =====================================================

func (r *postgresRepository) queryBorrowings(ctx context.Context, query string, args ...any) ([]*model.Borrowing, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query borrowings: %w", err)
	}
	defer rows.Close()

	list := make([]*model.Borrowing, 0)
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan borrowing: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate borrowings: %w", err)
	}

	return list, nil
}

func scanBorrowing(row pgx.Row) (*model.Borrowing, error) {
	var (
		b      model.Borrowing
		status string
	)

	err := row.Scan(
		&b.ID,
		&b.BookID,
		&b.UserID,
		&b.Interval.StartDate,
		&b.Interval.EndDate,
		&status,
		&b.AdminNote,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = model.Status(status)
	b.Interval = model.NewInterval(b.Interval.StartDate, b.Interval.EndDate)
	return &b, nil
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// =====================================================
// POSTGRES CATALOG
// =====================================================

type postgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog reads copy counts from the catalog's books table
func NewPostgresCatalog(pool *pgxpool.Pool) Catalog {
	return &postgresCatalog{pool: pool}
}

func (c *postgresCatalog) GetTotalCopies(ctx context.Context, bookID uuid.UUID) (int, error) {
	var total int
	err := c.pool.QueryRow(ctx, `SELECT total_copies FROM books WHERE id = $1`, bookID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrBookNotFound
		}
		return 0, fmt.Errorf("failed to get total copies: %w", err)
	}
	return total, nil
}
