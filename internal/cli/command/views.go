package command

import (
	"strconv"
	"time"

	"github.com/aussiebroadwan/closedown/internal/cli/output"
	"github.com/aussiebroadwan/closedown/internal/history"
	"github.com/aussiebroadwan/closedown/pkg/closedown"
)

// stateView is a lookup result as printed.
type stateView struct {
	CorpNum   string `json:"corpNum" yaml:"corpNum"`
	State     string `json:"state" yaml:"state"`
	StateName string `json:"stateName" yaml:"stateName"`
	StateDate string `json:"stateDate" yaml:"stateDate"`
	Type      string `json:"type" yaml:"type"`
	TypeName  string `json:"typeName" yaml:"typeName"`
	TypeDate  string `json:"typeDate" yaml:"typeDate"`
	CheckDate string `json:"checkDate" yaml:"checkDate"`
}

type stateViews []stateView

func newStateViews(states []closedown.CorpState) stateViews {
	views := make(stateViews, len(states))
	for i, st := range states {
		views[i] = stateView{
			CorpNum:   st.CorpNum,
			State:     st.State,
			StateName: st.StateName(),
			StateDate: st.StateDate,
			Type:      st.Type,
			TypeName:  st.TypeName(),
			TypeDate:  st.TypeDate,
			CheckDate: st.CheckDate,
		}
	}
	return views
}

func (v stateViews) Table() *output.Table {
	t := &output.Table{Headers: []string{"CORP_NUM", "STATE", "STATE_DATE", "TYPE", "TYPE_DATE", "CHECK_DATE"}}
	for _, s := range v {
		t.AddRow(s.CorpNum, s.StateName, s.StateDate, s.TypeName, s.TypeDate, s.CheckDate)
	}
	return t
}

// amountView is a single named amount (unit cost, balance).
type amountView struct {
	Name   string  `json:"-" yaml:"-"`
	Amount float64 `json:"amount" yaml:"amount"`
}

func (v amountView) Table() *output.Table {
	t := &output.Table{Headers: []string{v.Name}}
	t.AddRow(strconv.FormatFloat(v.Amount, 'f', -1, 64))
	return t
}

// lookupView is a history entry as printed.
type lookupView struct {
	ID         string    `json:"id" yaml:"id"`
	RecordedAt time.Time `json:"recordedAt" yaml:"recordedAt"`
	stateView  `yaml:",inline"`
}

type lookupViews []lookupView

func newLookupViews(lookups []history.Lookup) lookupViews {
	views := make(lookupViews, len(lookups))
	for i, l := range lookups {
		views[i] = lookupView{
			ID:         l.ID,
			RecordedAt: l.RecordedAt,
			stateView:  newStateViews([]closedown.CorpState{l.CorpState()})[0],
		}
	}
	return views
}

func (v lookupViews) Table() *output.Table {
	t := &output.Table{Headers: []string{"ID", "RECORDED_AT", "CORP_NUM", "STATE", "STATE_DATE", "CHECK_DATE"}}
	for _, l := range v {
		t.AddRow(l.ID, l.RecordedAt.Format(time.RFC3339), l.CorpNum, l.StateName, l.StateDate, l.CheckDate)
	}
	return t
}

// countView is the number of recorded lookups.
type countView struct {
	Entries int64 `json:"entries" yaml:"entries"`
}

func (v countView) Table() *output.Table {
	t := &output.Table{Headers: []string{"ENTRIES"}}
	t.AddRow(strconv.FormatInt(v.Entries, 10))
	return t
}
