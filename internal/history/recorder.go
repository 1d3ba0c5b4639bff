package history

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/closedown/pkg/closedown"
	"github.com/aussiebroadwan/closedown/pkg/idx"
	"github.com/aussiebroadwan/closedown/pkg/slogx"
)

// Recorder writes lookup results to a Store.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record stores every state in one transaction and returns the new IDs in
// input order.
func (r *Recorder) Record(ctx context.Context, states ...closedown.CorpState) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}

	recordedAt := r.now().UTC()
	ids := make([]string, len(states))

	err := r.store.WithTx(ctx, func(tx Tx) error {
		for i, st := range states {
			// The row's timestamp is the one embedded in its ID.
			id := idx.NewAt(recordedAt)
			if err := tx.Lookups().Record(ctx, FromCorpState(id.String(), st, id.Time())); err != nil {
				return fmt.Errorf("record %s: %w", st.CorpNum, err)
			}
			ids[i] = id.String()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Debug("history_recorded", "count", len(ids))
	return ids, nil
}

// FromCorpState builds a Lookup from a service result.
func FromCorpState(id string, st closedown.CorpState, recordedAt time.Time) Lookup {
	return Lookup{
		ID:         id,
		CorpNum:    st.CorpNum,
		Type:       st.Type,
		TypeDate:   st.TypeDate,
		State:      st.State,
		StateDate:  st.StateDate,
		CheckDate:  st.CheckDate,
		RecordedAt: recordedAt,
	}
}

// CorpState returns the service result a Lookup recorded.
func (l Lookup) CorpState() closedown.CorpState {
	return closedown.CorpState{
		CorpNum:   l.CorpNum,
		Type:      l.Type,
		TypeDate:  l.TypeDate,
		State:     l.State,
		StateDate: l.StateDate,
		CheckDate: l.CheckDate,
	}
}
