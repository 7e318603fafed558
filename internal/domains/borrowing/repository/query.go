package repository

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"library-backend/internal/domains/borrowing/model"
)

const (
	dialectPostgres = "postgres"
	tableBorrowings = "borrowings"

	colID        = "id"
	colBookID    = "book_id"
	colUserID    = "user_id"
	colStartDate = "start_date"
	colEndDate   = "end_date"
	colStatus    = "status"
	colAdminNote = "admin_note"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
)

var borrowingColumns = []interface{}{
	colID, colBookID, colUserID, colStartDate, colEndDate,
	colStatus, colAdminNote, colCreatedAt, colUpdatedAt,
}

type sqlQuery struct {
	sql  string
	args []interface{}
}

// buildListQuery turns a ListQuery into a page query and a count query
func buildListQuery(q model.ListQuery) (page sqlQuery, count sqlQuery, err error) {
	base := goqu.Dialect(dialectPostgres).
		From(tableBorrowings).
		Prepared(true).
		Where(listConditions(q)...)

	pageStmt := base.
		Select(borrowingColumns...).
		Order(listOrder(q.Order)...).
		Limit(uint(q.Limit)).
		Offset(uint(q.Offset()))

	page.sql, page.args, err = pageStmt.ToSQL()
	if err != nil {
		return sqlQuery{}, sqlQuery{}, fmt.Errorf("build list query: %w", err)
	}

	count.sql, count.args, err = base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return sqlQuery{}, sqlQuery{}, fmt.Errorf("build count query: %w", err)
	}

	return page, count, nil
}

func listConditions(q model.ListQuery) []exp.Expression {
	var where []exp.Expression

	if q.UserID != nil {
		where = append(where, goqu.C(colUserID).Eq(*q.UserID))
	}
	if q.BookID != nil {
		where = append(where, goqu.C(colBookID).Eq(*q.BookID))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, goqu.C(colStatus).In(statuses))
	}
	if q.ActiveOn != nil {
		day := model.DateOf(*q.ActiveOn)
		where = append(where,
			goqu.C(colStartDate).Lte(day),
			goqu.C(colEndDate).Gte(day),
		)
	}
	if q.Window != nil {
		where = append(where,
			goqu.C(colStartDate).Lte(q.Window.EndDate),
			goqu.C(colEndDate).Gte(q.Window.StartDate),
		)
	}

	return where
}

func listOrder(order model.ListOrder) []exp.OrderedExpression {
	if order == model.OrderStartAsc {
		return []exp.OrderedExpression{goqu.I(colStartDate).Asc(), goqu.I(colID).Asc()}
	}
	return []exp.OrderedExpression{goqu.I(colCreatedAt).Desc(), goqu.I(colID).Asc()}
}
