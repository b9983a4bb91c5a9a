// Package vehicle computes equity, cost of ownership and forecasts for cars
// held on finance. The data model is six relational tables joined by integer
// ids: cars, finance agreements, valuations, expenses, finance payments and
// key dates.
package vehicle

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrCarNotFound = errors.New("car not found")

type (
	Car struct {
		ID             int             `json:"car_id"`
		Make           string          `json:"make"`
		Model          string          `json:"model"`
		Year           int             `json:"year"`
		VIN            string          `json:"vin,omitempty"`
		PurchaseDate   time.Time       `json:"purchase_date"`
		PurchasePrice  decimal.Decimal `json:"purchase_price"`
		InitialMileage int             `json:"initial_mileage"`
	}

	// FinanceAgreement is the primary finance deal of a car. Only the first
	// agreement listed for a car is used.
	FinanceAgreement struct {
		ID             int             `json:"finance_id"`
		CarID          int             `json:"car_id"`
		Provider       string          `json:"provider"`
		Type           string          `json:"type"`
		StartDate      time.Time       `json:"start_date"`
		EndDate        time.Time       `json:"end_date"`
		AmountFinanced decimal.Decimal `json:"amount_financed"`
		APR            decimal.Decimal `json:"interest_rate_apr"`
		Deposit        decimal.Decimal `json:"deposit_amount"`
		PartExchange   decimal.Decimal `json:"part_exchange_value"`
		MonthlyPayment decimal.Decimal `json:"monthly_payment"`
		BalloonPayment decimal.Decimal `json:"balloon_payment"`
	}

	Valuation struct {
		ID      int             `json:"valuation_id"`
		CarID   int             `json:"car_id"`
		Date    time.Time       `json:"date"`
		Value   decimal.Decimal `json:"value"`
		Mileage int             `json:"mileage"`
		Source  string          `json:"source,omitempty"`
	}

	Expense struct {
		ID          int             `json:"expense_id"`
		CarID       int             `json:"car_id"`
		Date        time.Time       `json:"date"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		Cost        decimal.Decimal `json:"cost"`
		Mileage     int             `json:"mileage,omitempty"`
	}

	Payment struct {
		ID        int             `json:"payment_id"`
		FinanceID int             `json:"finance_id"`
		Date      time.Time       `json:"payment_date"`
		Amount    decimal.Decimal `json:"amount"`
	}

	KeyDate struct {
		ID     int       `json:"key_date_id"`
		CarID  int       `json:"car_id"`
		Type   string    `json:"date_type"`
		Expiry time.Time `json:"expiry_date"`
		Notes  string    `json:"notes,omitempty"`
	}
)

// Dataset is the full vehicle workbook.
type Dataset struct {
	Cars       []Car              `json:"cars"`
	Finance    []FinanceAgreement `json:"finance_agreements"`
	Valuations []Valuation        `json:"valuations"`
	Expenses   []Expense          `json:"expenses"`
	Payments   []Payment          `json:"finance_payments"`
	KeyDates   []KeyDate          `json:"key_dates"`
}

// Car looks a car up by id.
func (d Dataset) Car(id int) (Car, bool) {
	for _, c := range d.Cars {
		if c.ID == id {
			return c, true
		}
	}
	return Car{}, false
}

// Agreement returns the first finance agreement of a car.
func (d Dataset) Agreement(carID int) (FinanceAgreement, bool) {
	for _, f := range d.Finance {
		if f.CarID == carID {
			return f, true
		}
	}
	return FinanceAgreement{}, false
}

func (d Dataset) valuationsOf(carID int) []Valuation {
	var out []Valuation
	for _, v := range d.Valuations {
		if v.CarID == carID {
			out = append(out, v)
		}
	}
	return out
}

func (d Dataset) expensesOf(carID int) []Expense {
	var out []Expense
	for _, e := range d.Expenses {
		if e.CarID == carID {
			out = append(out, e)
		}
	}
	return out
}

func (d Dataset) paymentsOf(financeID int) []Payment {
	var out []Payment
	for _, p := range d.Payments {
		if p.FinanceID == financeID {
			out = append(out, p)
		}
	}
	return out
}

func (d Dataset) keyDatesOf(carID int) []KeyDate {
	var out []KeyDate
	for _, k := range d.KeyDates {
		if k.CarID == carID {
			out = append(out, k)
		}
	}
	return out
}

// Sheet names and their columns in workbook order.
const (
	SheetCars       = "Cars"
	SheetFinance    = "FinanceAgreements"
	SheetValuations = "Valuations"
	SheetExpenses   = "Expenses"
	SheetPayments   = "FinancePayments"
	SheetKeyDates   = "KeyDates"
)

var Columns = map[string][]string{
	SheetCars:       {"CarID", "Make", "Model", "Year", "VIN", "PurchaseDate", "PurchasePrice", "InitialMileage"},
	SheetFinance:    {"FinanceID", "CarID", "Provider", "Type", "StartDate", "EndDate", "AmountFinanced", "InterestRate_APR", "DepositAmount", "PartExchangeValue", "MonthlyPayment", "BalloonPayment"},
	SheetValuations: {"ValuationID", "CarID", "Date", "Value", "Mileage", "Source"},
	SheetExpenses:   {"ExpenseID", "CarID", "Date", "Category", "Description", "Cost", "Mileage"},
	SheetPayments:   {"PaymentID", "FinanceID", "PaymentDate", "Amount"},
	SheetKeyDates:   {"KeyDateID", "CarID", "DateType", "ExpiryDate", "Notes"},
}

// SheetNames lists the workbook sheets in load order.
func SheetNames() []string {
	return []string{SheetCars, SheetFinance, SheetValuations, SheetExpenses, SheetPayments, SheetKeyDates}
}
