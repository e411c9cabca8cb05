package alerts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
)

// TimeLayout is the format of CreatedAt and TriggeredAt.
const TimeLayout = "2006-01-02 15:04:05"

type Type string

const (
	PriceAbove     Type = "price_above"
	PriceBelow     Type = "price_below"
	DecisionChange Type = "decision_change"
	Volatility     Type = "volatility"
)

var Types = []Type{PriceAbove, PriceBelow, DecisionChange, Volatility}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == strings.ToLower(strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown alert type %q", s)
}

// Params holds the threshold of an alert; only the field matching the alert
// type is meaningful.
type Params struct {
	TargetPrice    float64          `json:"target_price,omitempty"`
	TargetDecision mdparse.Decision `json:"target_decision,omitempty"`
	Threshold      float64          `json:"threshold,omitempty"`
}

type Alert struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Ticker    string `json:"ticker"`
	Params    Params `json:"params"`
	CreatedAt string `json:"created_at"`
	Triggered bool   `json:"triggered"`
	Active    bool   `json:"active"`

	// Set on the copies recorded when an alert fires.
	TriggeredAt  string `json:"triggered_at,omitempty"`
	TriggerValue string `json:"trigger_value,omitempty"`
}

// New returns an active, untriggered alert with a fresh id.
func New(t Type, ticker string, p Params, now time.Time) (Alert, error) {
	a := Alert{
		ID:        uuid.NewString(),
		Type:      t,
		Ticker:    dataflows.NormalizeSymbol(ticker),
		Params:    p,
		CreatedAt: now.Format(TimeLayout),
		Active:    true,
	}
	if err := a.Validate(); err != nil {
		return Alert{}, err
	}
	return a, nil
}

func (a Alert) Validate() error {
	if err := dataflows.ValidateSymbol(a.Ticker); err != nil {
		return err
	}
	switch a.Type {
	case PriceAbove, PriceBelow:
		if a.Params.TargetPrice <= 0 {
			return errors.New("target_price must be positive")
		}
	case DecisionChange:
		if !a.Params.TargetDecision.Valid() {
			return errors.New("target_decision must be BUY, HOLD or SELL")
		}
	case Volatility:
		if a.Params.Threshold <= 0 {
			return errors.New("threshold must be positive")
		}
	default:
		return fmt.Errorf("unknown alert type %q", a.Type)
	}
	return nil
}

// Condition describes the alert threshold for display.
func (a Alert) Condition() string {
	switch a.Type {
	case PriceAbove:
		return fmt.Sprintf("Price >= $%.2f", a.Params.TargetPrice)
	case PriceBelow:
		return fmt.Sprintf("Price <= $%.2f", a.Params.TargetPrice)
	case DecisionChange:
		return fmt.Sprintf("Decision = %s", a.Params.TargetDecision)
	case Volatility:
		return fmt.Sprintf("Volatility >= %.2f%%", a.Params.Threshold)
	}
	return ""
}

// Status is "Triggered" or "Active".
func (a Alert) Status() string {
	if a.Triggered {
		return "Triggered"
	}
	return "Active"
}

// ActiveOnly filters out deactivated alerts.
func ActiveOnly(list []Alert) []Alert {
	out := make([]Alert, 0, len(list))
	for _, a := range list {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}
