package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EntryKind distinguishes the two ledger collections. Expenses and incomes
// share one document shape; only the category vocabulary differs.
type EntryKind string

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"
)

type Entry struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID      bson.ObjectID `bson:"user" json:"user"`
	Title       string        `bson:"title" json:"title"`
	Amount      float64       `bson:"amount" json:"amount"`
	Category    string        `bson:"category" json:"category"`
	Description string        `bson:"description" json:"description"`
	Date        string        `bson:"date" json:"date"`
	CreatedAt   time.Time     `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updated_at"`
}

var (
	ExpenseCategories = []string{"food", "rent", "transport", "utilities", "health", "shopping", "entertainment", "other"}
	IncomeCategories  = []string{"salary", "freelance", "business", "investments", "gifts", "other"}
)

func (k EntryKind) Categories() []string {
	if k == KindIncome {
		return IncomeCategories
	}
	return ExpenseCategories
}

func (k EntryKind) ValidCategory(category string) bool {
	for _, c := range k.Categories() {
		if c == category {
			return true
		}
	}
	return false
}
