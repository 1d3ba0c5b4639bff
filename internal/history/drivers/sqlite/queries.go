package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type lookupRow struct {
	ID         string
	CorpNum    string
	Type       string
	TypeDate   string
	State      string
	StateDate  string
	CheckDate  string
	RecordedAt int64
}

const lookupColumns = `id, corp_num, type, type_date, state, state_date, check_date, recorded_at`

const insertLookup = `INSERT INTO lookups (` + lookupColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertLookup(ctx context.Context, arg lookupRow) error {
	_, err := q.db.ExecContext(ctx, insertLookup,
		arg.ID,
		arg.CorpNum,
		arg.Type,
		arg.TypeDate,
		arg.State,
		arg.StateDate,
		arg.CheckDate,
		arg.RecordedAt,
	)
	return err
}

const getLookup = `SELECT ` + lookupColumns + ` FROM lookups WHERE id = ?`

func (q *Queries) GetLookup(ctx context.Context, id string) (lookupRow, error) {
	return scanLookup(q.db.QueryRowContext(ctx, getLookup, id))
}

const listLookups = `SELECT ` + lookupColumns + ` FROM lookups ORDER BY id DESC LIMIT ?`

const listLookupsByCorpNum = `SELECT ` + lookupColumns + ` FROM lookups WHERE corp_num = ? ORDER BY id DESC LIMIT ?`

func (q *Queries) ListLookups(ctx context.Context, corpNum string, limit int) ([]lookupRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if corpNum == "" {
		rows, err = q.db.QueryContext(ctx, listLookups, limit)
	} else {
		rows, err = q.db.QueryContext(ctx, listLookupsByCorpNum, corpNum, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []lookupRow
	for rows.Next() {
		item, err := scanLookup(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countLookups = `SELECT COUNT(*) FROM lookups`

const countLookupsByCorpNum = `SELECT COUNT(*) FROM lookups WHERE corp_num = ?`

func (q *Queries) CountLookups(ctx context.Context, corpNum string) (int64, error) {
	var row *sql.Row
	if corpNum == "" {
		row = q.db.QueryRowContext(ctx, countLookups)
	} else {
		row = q.db.QueryRowContext(ctx, countLookupsByCorpNum, corpNum)
	}

	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteLookupsBefore = `DELETE FROM lookups WHERE recorded_at < ?`

func (q *Queries) DeleteLookupsBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteLookupsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLookup(s scanner) (lookupRow, error) {
	var i lookupRow
	err := s.Scan(
		&i.ID,
		&i.CorpNum,
		&i.Type,
		&i.TypeDate,
		&i.State,
		&i.StateDate,
		&i.CheckDate,
		&i.RecordedAt,
	)
	return i, err
}
