package closedown

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Business states reported in CorpState.State.
const (
	StateNotRegistered = "0"
	StateActive        = "1"
	StateClosed        = "2"
	StateSuspended     = "3"
)

// Taxpayer types reported in CorpState.Type.
const (
	TypeGeneral    = "1"
	TypeTaxExempt  = "2"
	TypeSimplified = "3"
	TypeNonProfit  = "4"
)

// CorpState is the result of looking up one business registration number.
// Dates are YYYYMMDD strings as the service sends them; fields the service
// left null decode to "".
type CorpState struct {
	// CorpNum is the registration number that was looked up.
	CorpNum string `json:"corpNum" yaml:"corpNum"`

	// Type is the taxpayer type, one of the Type* constants.
	Type string `json:"type" yaml:"type"`

	// TypeDate is the date the taxpayer type took effect.
	TypeDate string `json:"typeDate" yaml:"typeDate"`

	// State is the business state, one of the State* constants.
	State string `json:"state" yaml:"state"`

	// StateDate is the date of closure or suspension, if any.
	StateDate string `json:"stateDate" yaml:"stateDate"`

	// CheckDate is the date the service last confirmed the state.
	CheckDate string `json:"checkDate" yaml:"checkDate"`
}

// IsClosed reports whether the business has been closed down.
func (s CorpState) IsClosed() bool { return s.State == StateClosed }

// IsSuspended reports whether the business is temporarily suspended.
func (s CorpState) IsSuspended() bool { return s.State == StateSuspended }

// StateName returns a short English name for State.
func (s CorpState) StateName() string {
	switch s.State {
	case "", StateNotRegistered:
		return "not registered"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// TypeName returns a short English name for Type.
func (s CorpState) TypeName() string {
	switch s.Type {
	case "":
		return ""
	case TypeGeneral:
		return "general"
	case TypeTaxExempt:
		return "tax-exempt"
	case TypeSimplified:
		return "simplified"
	case TypeNonProfit:
		return "non-profit"
	default:
		return "unknown"
	}
}

// unitCostResponse is the body of GET /UnitCost.
type unitCostResponse struct {
	UnitCost flexFloat `json:"unitCost"`
}

// flexFloat accepts both 10.5 and "10.5"; the service has sent both.
type flexFloat float32

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	v, err := strconv.ParseFloat(string(data), 32)
	if err != nil {
		return fmt.Errorf("invalid unit cost %q: %w", data, err)
	}
	*f = flexFloat(v)
	return nil
}
