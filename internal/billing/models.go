// Package billing holds the billing accounts and monthly bills attached to
// customers. Bills are written by the rating pipeline; this service only
// records and reads them, so there is no amount arithmetic here.
package billing

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// AccountStatus is the lifecycle state of a billing account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

// BillStatus is the settlement state of a bill.
type BillStatus string

const (
	BillPending BillStatus = "PENDING"
	BillPaid    BillStatus = "PAID"
	BillOverdue BillStatus = "OVERDUE"
)

// billMonthRe matches the YYYY-MM month key bills are issued under.
var billMonthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Account links a customer to their bills under a stable account number.
type Account struct {
	ID            uuid.UUID     `json:"id"`
	AccountNumber string        `json:"account_number"`
	CustomerID    uuid.UUID     `json:"customer_id"`
	Status        AccountStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

func NewAccount(id uuid.UUID, accountNumber string, customerID uuid.UUID, now time.Time) (*Account, error) {
	if accountNumber == "" {
		return nil, simerrors.New(simerrors.CodeValidation, "account number is required")
	}
	if customerID == uuid.Nil {
		return nil, simerrors.New(simerrors.CodeValidation, "customer id is required")
	}
	return &Account{
		ID:            id,
		AccountNumber: accountNumber,
		CustomerID:    customerID,
		Status:        AccountActive,
		CreatedAt:     now,
	}, nil
}

// Bill is one month's charges on an account. Amounts are integer cents.
type Bill struct {
	ID               uuid.UUID  `json:"id"`
	AccountID        uuid.UUID  `json:"account_id"`
	BillMonth        string     `json:"bill_month"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	Status           BillStatus `json:"status"`
	IssueDate        time.Time  `json:"issue_date"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func NewBill(id, accountID uuid.UUID, billMonth string, totalAmountCents int64, dueDate *time.Time, now time.Time) (*Bill, error) {
	if !billMonthRe.MatchString(billMonth) {
		return nil, simerrors.New(simerrors.CodeValidation, "bill month must be YYYY-MM")
	}
	if totalAmountCents < 0 {
		return nil, simerrors.New(simerrors.CodeValidation, "bill amount cannot be negative")
	}
	return &Bill{
		ID:               id,
		AccountID:        accountID,
		BillMonth:        billMonth,
		TotalAmountCents: totalAmountCents,
		Status:           BillPending,
		IssueDate:        now,
		DueDate:          dueDate,
		CreatedAt:        now,
	}, nil
}

// Open reports whether the bill still awaits payment.
func (b *Bill) Open() bool {
	return b.Status != BillPaid
}
