package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
)

var tickerFormat = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

func validateTicker(val interface{}) error {
	str := strings.TrimSpace(strings.ToUpper(val.(string)))
	if len(str) == 0 {
		return fmt.Errorf("ticker symbol cannot be empty")
	}
	if len(str) > 10 {
		return fmt.Errorf("ticker symbol too long (max 10 characters)")
	}
	if !tickerFormat.MatchString(str) {
		return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
	}
	return nil
}

func validatePositiveNumber(val interface{}) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(val.(string)), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

// PromptForTicker asks for a ticker. With known tickers it offers a selection.
func PromptForTicker(known []string) (string, error) {
	var ticker string
	if len(known) > 0 {
		prompt := &survey.Select{
			Message: "Select a ticker:",
			Options: known,
		}
		if err := survey.AskOne(prompt, &ticker); err != nil {
			return "", err
		}
		return ticker, nil
	}

	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, GOOGL):",
	}
	if err := survey.AskOne(prompt, &ticker, survey.WithValidator(validateTicker)); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// PromptForDate asks which analysis date to open, newest first.
func PromptForDate(dates []string) (string, error) {
	if len(dates) == 0 {
		return "", fmt.Errorf("no analysis dates available")
	}
	var date string
	prompt := &survey.Select{
		Message: "Select an analysis date:",
		Options: dates,
		Default: dates[0],
	}
	if err := survey.AskOne(prompt, &date); err != nil {
		return "", err
	}
	return date, nil
}

// PromptForAlert collects the type, ticker and parameters of a new alert.
func PromptForAlert() (alerts.Type, string, alerts.Params, error) {
	var params alerts.Params

	options := make([]string, len(alerts.Types))
	for i, t := range alerts.Types {
		options[i] = string(t)
	}
	var typeName string
	if err := survey.AskOne(&survey.Select{Message: "Alert type:", Options: options}, &typeName); err != nil {
		return "", "", params, err
	}
	t, err := alerts.ParseType(typeName)
	if err != nil {
		return "", "", params, err
	}

	ticker, err := PromptForTicker(nil)
	if err != nil {
		return "", "", params, err
	}

	var raw string
	switch t {
	case alerts.PriceAbove, alerts.PriceBelow:
		if err := survey.AskOne(&survey.Input{Message: "Target price:"}, &raw, survey.WithValidator(validatePositiveNumber)); err != nil {
			return "", "", params, err
		}
		params.TargetPrice, _ = strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case alerts.Volatility:
		if err := survey.AskOne(&survey.Input{Message: "Annualised volatility threshold (%):"}, &raw, survey.WithValidator(validatePositiveNumber)); err != nil {
			return "", "", params, err
		}
		params.Threshold, _ = strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case alerts.DecisionChange:
		prompt := &survey.Select{
			Message: "Alert when the latest decision is:",
			Options: []string{string(mdparse.DecisionBuy), string(mdparse.DecisionHold), string(mdparse.DecisionSell)},
		}
		if err := survey.AskOne(prompt, &raw); err != nil {
			return "", "", params, err
		}
		params.TargetDecision = mdparse.ParseDecision(raw)
	}
	return t, ticker, params, nil
}

// PromptForConfirmation asks a yes/no question, defaulting to no.
func PromptForConfirmation(message string) (bool, error) {
	confirmed := false
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
