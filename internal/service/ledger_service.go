package service

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
)

const (
	minTitleLen     = 3
	maxTitleLen     = 50
	maxDescription  = 250
	entryDateLayout = "2006-01-02"
)

type EntryInput struct {
	Title       string
	Amount      float64
	Category    string
	Description string
	Date        string
}

// EntryPatch carries the optional fields of an entry update. Nil means
// unchanged, so amount can legally be patched to small values without being
// mistaken for an omitted field.
type EntryPatch struct {
	Title       *string
	Amount      *float64
	Category    *string
	Description *string
	Date        *string
}

func (p EntryPatch) empty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

// LedgerService implements both ledgers; the kind selects the category
// vocabulary and the metric labels, the repository selects the collection.
type LedgerService struct {
	kind    domain.EntryKind
	entries repository.EntryRepository
}

func NewExpenseService(entries repository.EntryRepository) *LedgerService {
	return &LedgerService{kind: domain.KindExpense, entries: entries}
}

func NewIncomeService(entries repository.EntryRepository) *LedgerService {
	return &LedgerService{kind: domain.KindIncome, entries: entries}
}

func (s *LedgerService) Kind() domain.EntryKind { return s.kind }

func (s *LedgerService) Create(ctx context.Context, userID bson.ObjectID, in EntryInput) (*domain.Entry, error) {
	start := time.Now()
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if err := s.validateEntry(title, in.Amount, in.Category, description, in.Date); err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		UserID:      userID,
		Title:       title,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: description,
		Date:        in.Date,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		observability.RecordLedgerOperation(ctx, string(s.kind), "create", "error", time.Since(start))
		return nil, err
	}
	observability.RecordLedgerOperation(ctx, string(s.kind), "create", "success", time.Since(start))
	return entry, nil
}

func (s *LedgerService) ListPaged(ctx context.Context, userID bson.ObjectID, req repository.PageRequest) (repository.PageResult[domain.Entry], error) {
	start := time.Now()
	result, err := s.entries.ListPaged(ctx, userID, req)
	if err != nil {
		observability.RecordLedgerOperation(ctx, string(s.kind), "list", "error", time.Since(start))
		return repository.PageResult[domain.Entry]{}, err
	}
	observability.RecordLedgerOperation(ctx, string(s.kind), "list", "success", time.Since(start))
	return result, nil
}

func (s *LedgerService) ListAll(ctx context.Context, userID bson.ObjectID) ([]domain.Entry, float64, error) {
	start := time.Now()
	items, sum, err := s.entries.ListAll(ctx, userID)
	if err != nil {
		observability.RecordLedgerOperation(ctx, string(s.kind), "list_all", "error", time.Since(start))
		return nil, 0, err
	}
	observability.RecordLedgerOperation(ctx, string(s.kind), "list_all", "success", time.Since(start))
	return items, sum, nil
}

func (s *LedgerService) Update(ctx context.Context, userID, id bson.ObjectID, patch EntryPatch) (*domain.Entry, error) {
	start := time.Now()
	if patch.empty() {
		return nil, NewValidationError("no fields to update")
	}

	updates := bson.M{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *patch.Amount
	}
	if patch.Category != nil {
		if err := s.validateCategory(*patch.Category); err != nil {
			return nil, err
		}
		updates["category"] = *patch.Category
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if patch.Date != nil {
		if err := validateDate(*patch.Date); err != nil {
			return nil, err
		}
		updates["date"] = *patch.Date
	}

	entry, err := s.entries.Update(ctx, userID, id, updates)
	if err != nil {
		status := "error"
		if err == repository.ErrEntryNotFound {
			status = "not_found"
		}
		observability.RecordLedgerOperation(ctx, string(s.kind), "update", status, time.Since(start))
		return nil, err
	}
	observability.RecordLedgerOperation(ctx, string(s.kind), "update", "success", time.Since(start))
	return entry, nil
}

func (s *LedgerService) Delete(ctx context.Context, userID, id bson.ObjectID) error {
	start := time.Now()
	if err := s.entries.Delete(ctx, userID, id); err != nil {
		status := "error"
		if err == repository.ErrEntryNotFound {
			status = "not_found"
		}
		observability.RecordLedgerOperation(ctx, string(s.kind), "delete", status, time.Since(start))
		return err
	}
	observability.RecordLedgerOperation(ctx, string(s.kind), "delete", "success", time.Since(start))
	return nil
}

func (s *LedgerService) validateEntry(title string, amount float64, category, description, date string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := s.validateCategory(category); err != nil {
		return err
	}
	if err := validateDescription(description); err != nil {
		return err
	}
	return validateDate(date)
}

func validateTitle(title string) error {
	if l := len(title); l < minTitleLen || l > maxTitleLen {
		return NewValidationError("title must be between %d and %d characters", minTitleLen, maxTitleLen)
	}
	return nil
}

func validateAmount(amount float64) error {
	if amount <= 0 {
		return NewValidationError("amount must be greater than zero")
	}
	return nil
}

func (s *LedgerService) validateCategory(category string) error {
	if !s.kind.ValidCategory(category) {
		return NewValidationError("category must be one of: %s", strings.Join(s.kind.Categories(), ", "))
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > maxDescription {
		return NewValidationError("description must be at most %d characters", maxDescription)
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(entryDateLayout, date); err != nil {
		return NewValidationError("date must use the %s format", entryDateLayout)
	}
	return nil
}
