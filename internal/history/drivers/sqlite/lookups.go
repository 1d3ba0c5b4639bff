package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/closedown/internal/history"
)

type lookupsRepo struct {
	q *Queries
}

func (r *lookupsRepo) Record(ctx context.Context, l history.Lookup) error {
	err := r.q.InsertLookup(ctx, lookupRow{
		ID:         l.ID,
		CorpNum:    l.CorpNum,
		Type:       l.Type,
		TypeDate:   l.TypeDate,
		State:      l.State,
		StateDate:  l.StateDate,
		CheckDate:  l.CheckDate,
		RecordedAt: l.RecordedAt.UnixMilli(),
	})
	return mapConstraint(err)
}

func (r *lookupsRepo) Get(ctx context.Context, id string) (history.Lookup, error) {
	row, err := r.q.GetLookup(ctx, id)
	if err != nil {
		return history.Lookup{}, mapNotFound(err)
	}
	return mapLookup(row), nil
}

func (r *lookupsRepo) List(ctx context.Context, f history.ListFilter) ([]history.Lookup, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = history.DefaultListLimit
	}

	rows, err := r.q.ListLookups(ctx, f.CorpNum, limit)
	if err != nil {
		return nil, err
	}

	lookups := make([]history.Lookup, len(rows))
	for i, row := range rows {
		lookups[i] = mapLookup(row)
	}
	return lookups, nil
}

func (r *lookupsRepo) Count(ctx context.Context, corpNum string) (int64, error) {
	return r.q.CountLookups(ctx, corpNum)
}

func (r *lookupsRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.DeleteLookupsBefore(ctx, cutoff.UnixMilli())
}
