package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*domain.User
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: map[bson.ObjectID]*domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) FindByID(_ context.Context, id bson.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrUserNotFound
}

func (r *stubUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *stubUserRepo) Update(context.Context, *domain.User) error { return nil }
func (r *stubUserRepo) MarkVerified(context.Context, bson.ObjectID) error {
	return nil
}
func (r *stubUserRepo) UpdatePassword(context.Context, bson.ObjectID, string) error {
	return nil
}

func TestSessionGate(t *testing.T) {
	tokens := security.NewSessionTokenManager("finance-tracker", "finance-tracker-api", "0123456789abcdef0123456789abcdef", time.Hour)

	verified := &domain.User{ID: bson.NewObjectID(), Username: "alice", Email: "alice@example.com", Verified: true}
	unverified := &domain.User{ID: bson.NewObjectID(), Username: "bob", Email: "bob@example.com", Verified: false}
	repo := newStubUserRepo(verified, unverified)

	gate := SessionGate(tokens, repo)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("expected user in context")
		} else if user.ID != verified.ID {
			t.Errorf("unexpected user %s", user.ID.Hex())
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := gate(next)

	do := func(t *testing.T, cookie string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing cookie", func(t *testing.T) {
		rec := do(t, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := do(t, "garbage")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := security.NewSessionTokenManager("finance-tracker", "finance-tracker-api", "0123456789abcdef0123456789abcdef", -time.Minute)
		token, err := expired.Sign(verified.ID.Hex())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		rec := do(t, token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("user deleted after issue", func(t *testing.T) {
		token, err := tokens.Sign(bson.NewObjectID().Hex())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		rec := do(t, token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unverified user", func(t *testing.T) {
		token, err := tokens.Sign(unverified.ID.Hex())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		rec := do(t, token)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "error") {
			t.Fatalf("expected error body, got %s", rec.Body.String())
		}
	})

	t.Run("valid session", func(t *testing.T) {
		token, err := tokens.Sign(verified.ID.Hex())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		rec := do(t, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
		}
	})
}
