package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sfms/internal/core"
)

// AffordabilityAlert is published when a debt affordability analysis comes
// back borderline or risky. Amounts are encoded as JSON strings.
type AffordabilityAlert struct {
	ID                       string          `json:"id"`
	UserID                   string          `json:"userId"`
	Label                    core.DTILabel   `json:"label"`
	DTIRatio                 decimal.Decimal `json:"dtiRatio"`
	MonthlyIncome            decimal.Decimal `json:"monthlyIncome"`
	TotalMonthlyDebtPayments decimal.Decimal `json:"totalMonthlyDebtPayments"`
	Recommendation           string          `json:"recommendation"`
	Timestamp                time.Time       `json:"timestamp"`
}

func NewAffordabilityAlert(userID string, a core.DTIAnalysis) *AffordabilityAlert {
	return &AffordabilityAlert{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		Label:                    a.Label,
		DTIRatio:                 a.DTIRatio,
		MonthlyIncome:            a.MonthlyIncome,
		TotalMonthlyDebtPayments: a.TotalMonthlyDebtPayments,
		Recommendation:           a.Recommendation,
		Timestamp:                time.Now().UTC(),
	}
}

func (m *AffordabilityAlert) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AffordabilityAlertFromJSON(data []byte) (*AffordabilityAlert, error) {
	var msg AffordabilityAlert
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, err
	}
	return &msg, nil
}
