package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/http/middleware"
	"github.com/myfinance/backend/internal/http/response"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/service"
)

// LedgerHandler serves one ledger kind. The items and sum response keys
// differ between the two ("expenses"/"totalExpense" vs
// "incomes"/"totalIncome"), everything else is shared.
type LedgerHandler struct {
	svc      service.Ledger
	noun     string
	itemKey  string
	itemsKey string
	sumKey   string
}

func NewExpenseHandler(svc service.Ledger) *LedgerHandler {
	return &LedgerHandler{svc: svc, noun: "Expense", itemKey: "expense", itemsKey: "expenses", sumKey: "totalExpense"}
}

func NewIncomeHandler(svc service.Ledger) *LedgerHandler {
	return &LedgerHandler{svc: svc, noun: "Income", itemKey: "income", itemsKey: "incomes", sumKey: "totalIncome"}
}

type entryRequest struct {
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type entryPatchRequest struct {
	Title       *string  `json:"title"`
	Amount      *float64 `json:"amount"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
}

type paginationInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
}

func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req entryRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := h.svc.Create(r.Context(), user.ID, service.EntryInput{
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.Audit(r, "ledger.entry_created", "kind", string(h.svc.Kind()), "entry_id", entry.ID.Hex())
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"message": h.noun + " created successfully",
		h.itemKey: entry,
	})
}

func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	req, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.ListPaged(r.Context(), user.ID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message":  h.noun + " records fetched successfully",
		h.itemsKey: result.Items,
		h.sumKey:   result.Sum,
		"pagination": paginationInfo{
			CurrentPage: result.Page,
			TotalPages:  result.TotalPages,
			TotalCount:  result.Total,
			PageSize:    result.PageSize,
		},
	})
}

// ListAll returns every record without pagination, for exports and
// client-side charting.
func (h *LedgerHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	items, sum, err := h.svc.ListAll(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message":  h.noun + " records fetched successfully",
		h.itemsKey: items,
		h.sumKey:   sum,
	})
}

func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseObjectID(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid id")
		return
	}
	var req entryPatchRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := h.svc.Update(r.Context(), user.ID, id, service.EntryPatch{
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.Audit(r, "ledger.entry_updated", "kind", string(h.svc.Kind()), "entry_id", entry.ID.Hex())
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": h.noun + " updated successfully",
		h.itemKey: entry,
	})
}

func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseObjectID(r, "id")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := h.svc.Delete(r.Context(), user.ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.Audit(r, "ledger.entry_deleted", "kind", string(h.svc.Kind()), "entry_id", id.Hex())
	response.JSON(w, r, http.StatusOK, map[string]string{"message": h.noun + " deleted successfully"})
}

func (h *LedgerHandler) Categories(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message":    "Categories fetched successfully",
		"categories": h.svc.Kind().Categories(),
	})
}

func (h *LedgerHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repository.ErrEntryNotFound):
		response.Error(w, r, http.StatusNotFound, h.noun+" not found")
	default:
		response.Error(w, r, http.StatusInternalServerError, "Something went wrong")
	}
}

// parsePageRequest reads page and pageSize, defaulting when absent and
// rejecting values that are present but unusable.
func parsePageRequest(r *http.Request) (repository.PageRequest, error) {
	req := repository.PageRequest{Page: repository.DefaultPage, PageSize: repository.DefaultPageSize}
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return repository.PageRequest{}, errors.New("page must be a positive integer")
		}
		req.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > repository.MaxPageSize {
			return repository.PageRequest{}, errors.New("pageSize must be between 1 and " + strconv.Itoa(repository.MaxPageSize))
		}
		req.PageSize = size
	}
	return req, nil
}

func parseObjectID(r *http.Request, param string) (bson.ObjectID, error) {
	return bson.ObjectIDFromHex(chi.URLParam(r, param))
}

