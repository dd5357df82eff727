package ynab

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Milliunits is a currency amount in thousandths of a unit, as used by every
// money field of the YNAB API.
type Milliunits int64

var thousand = decimal.NewFromInt(1000)

// Decimal converts the amount to currency units.
func (m Milliunits) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(thousand)
}

// Float64 converts the amount to currency units as a float.
func (m Milliunits) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Milliunits) String() string {
	return m.Decimal().StringFixed(2)
}

// Cleared states of a transaction.
const (
	Cleared    = "cleared"
	Uncleared  = "uncleared"
	Reconciled = "reconciled"
)

// CurrencyFormat describes how a budget displays money.
type CurrencyFormat struct {
	ISOCode          string `json:"iso_code"`
	ExampleFormat    string `json:"example_format"`
	DecimalDigits    int    `json:"decimal_digits"`
	DecimalSeparator string `json:"decimal_separator"`
	SymbolFirst      bool   `json:"symbol_first"`
	GroupSeparator   string `json:"group_separator"`
	CurrencySymbol   string `json:"currency_symbol"`
	DisplaySymbol    bool   `json:"display_symbol"`
}

// BudgetSummary is one entry of the budget list.
type BudgetSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	LastModifiedOn string          `json:"last_modified_on"`
	FirstMonth     string          `json:"first_month"`
	LastMonth      string          `json:"last_month"`
	CurrencyFormat *CurrencyFormat `json:"currency_format,omitempty"`
}

// BudgetDetail is a full budget export.
type BudgetDetail struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CurrencyFormat *CurrencyFormat `json:"currency_format,omitempty"`
	Accounts       []Account       `json:"accounts"`
	Months         []Month         `json:"months"`
	Transactions   []Transaction   `json:"transactions"`
}

// Account is a budget account.
type Account struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	OnBudget         bool       `json:"on_budget"`
	Closed           bool       `json:"closed"`
	Balance          Milliunits `json:"balance"`
	ClearedBalance   Milliunits `json:"cleared_balance"`
	UnclearedBalance Milliunits `json:"uncleared_balance"`
	Deleted          bool       `json:"deleted"`
}

// Month is the budget state for a calendar month. Month is formatted
// YYYY-MM-01.
type Month struct {
	Month        string     `json:"month"`
	Note         string     `json:"note,omitempty"`
	Income       Milliunits `json:"income"`
	Budgeted     Milliunits `json:"budgeted"`
	Activity     Milliunits `json:"activity"`
	ToBeBudgeted Milliunits `json:"to_be_budgeted"`
	AgeOfMoney   *int       `json:"age_of_money"`
	Deleted      bool       `json:"deleted"`
	Categories   []Category `json:"categories"`
}

// Category is a budget category within a month.
type Category struct {
	ID              string     `json:"id"`
	CategoryGroupID string     `json:"category_group_id"`
	Name            string     `json:"name"`
	Hidden          bool       `json:"hidden"`
	Budgeted        Milliunits `json:"budgeted"`
	Activity        Milliunits `json:"activity"`
	Balance         Milliunits `json:"balance"`
	Deleted         bool       `json:"deleted"`
}

// Transaction is a transaction summary as embedded in a budget export.
type Transaction struct {
	ID         string     `json:"id"`
	Date       string     `json:"date"`
	Amount     Milliunits `json:"amount"`
	Memo       string     `json:"memo,omitempty"`
	Cleared    string     `json:"cleared"`
	Approved   bool       `json:"approved"`
	AccountID  string     `json:"account_id"`
	PayeeName  string     `json:"payee_name,omitempty"`
	CategoryID string     `json:"category_id,omitempty"`
	Deleted    bool       `json:"deleted"`
}

// ImportResult is the outcome of a forced transaction import.
type ImportResult struct {
	TransactionIDs []string
	// RateLimit is the raw X-Rate-Limit header, e.g. "36/200".
	RateLimit string
}

// APIError is an error response decoded from the API error envelope.
type APIError struct {
	Status int    `json:"-"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ynab: %s (%d): %s", e.Name, e.Status, e.Detail)
	}
	return fmt.Sprintf("ynab: unexpected status %d", e.Status)
}

type budgetsResponse struct {
	Data struct {
		Budgets []BudgetSummary `json:"budgets"`
	} `json:"data"`
}

type budgetResponse struct {
	Data struct {
		Budget          BudgetDetail `json:"budget"`
		ServerKnowledge int64        `json:"server_knowledge"`
	} `json:"data"`
}

type importResponse struct {
	Data struct {
		TransactionIDs []string `json:"transaction_ids"`
	} `json:"data"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}
