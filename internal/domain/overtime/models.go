package overtime

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var maxHoursPerDay = decimal.NewFromInt(24)

type Request struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employeeId"`
	WorkDate     time.Time       `json:"workDate"`
	Hours        decimal.Decimal `json:"hours"`
	Reason       string          `json:"reason"`
	Status       string          `json:"status"`
	DecidedBy    string          `json:"decidedBy,omitempty"`
	DecidedAt    *time.Time      `json:"decidedAt,omitempty"`
	DecisionNote string          `json:"decisionNote,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Decision struct {
	Approve bool
	Note    string
}

func (d Decision) Status() string {
	if d.Approve {
		return StatusApproved
	}
	return StatusRejected
}

type ListFilter struct {
	EmployeeID string
	Status     string
}

type ListResult struct {
	Data  []Request
	Total int
}
