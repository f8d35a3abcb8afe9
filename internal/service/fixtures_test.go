package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*domain.User

	findErr   error
	createErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[bson.ObjectID]*domain.User{}}
}

func (r *fakeUserRepo) seed(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) FindByID(_ context.Context, id bson.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Verified = true
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id bson.ObjectID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*domain.OneTimeCode

	createErr error
	deleteErr error
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{}
}

func (r *fakeCodeRepo) Create(_ context.Context, code *domain.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	code.ID = bson.NewObjectID()
	copied := *code
	r.codes = append(r.codes, &copied)
	return nil
}

func (r *fakeCodeRepo) FindLatestByUser(_ context.Context, userID bson.ObjectID) (*domain.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.OneTimeCode
	for _, c := range r.codes {
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.ExpiresAt.After(latest.ExpiresAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, repository.ErrCodeNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeCodeRepo) DeleteByUser(_ context.Context, userID bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	kept := r.codes[:0]
	for _, c := range r.codes {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	r.codes = kept
	return nil
}

func (r *fakeCodeRepo) countForUser(userID bson.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

type sentMail struct {
	email string
	code  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendOTPEmail(_ context.Context, notification OTPNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{email: notification.Email, code: notification.Code})
	return nil
}

func (n *fakeNotifier) lastSent() (sentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMail{}, false
	}
	return n.sent[len(n.sent)-1], true
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []*domain.Entry

	createErr error
	listErr   error
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{}
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	entry.ID = bson.NewObjectID()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeEntryRepo) ListPaged(_ context.Context, userID bson.ObjectID, req repository.PageRequest) (repository.PageResult[domain.Entry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return repository.PageResult[domain.Entry]{}, r.listErr
	}
	owned := r.ownedLocked(userID)
	sum := 0.0
	for _, e := range owned {
		sum += e.Amount
	}

	page, size := req.Page, req.PageSize
	if page < 1 {
		page = repository.DefaultPage
	}
	if size < 1 {
		size = repository.DefaultPageSize
	}
	start := (page - 1) * size
	if start > len(owned) {
		start = len(owned)
	}
	end := start + size
	if end > len(owned) {
		end = len(owned)
	}

	items := make([]domain.Entry, 0, end-start)
	for _, e := range owned[start:end] {
		items = append(items, *e)
	}
	totalPages := (len(owned) + size - 1) / size
	return repository.PageResult[domain.Entry]{
		Items:      items,
		Page:       page,
		PageSize:   size,
		Total:      int64(len(owned)),
		TotalPages: totalPages,
		Sum:        sum,
	}, nil
}

func (r *fakeEntryRepo) ListAll(_ context.Context, userID bson.ObjectID) ([]domain.Entry, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	owned := r.ownedLocked(userID)
	items := make([]domain.Entry, 0, len(owned))
	sum := 0.0
	for _, e := range owned {
		items = append(items, *e)
		sum += e.Amount
	}
	return items, sum, nil
}

func (r *fakeEntryRepo) Update(_ context.Context, userID, id bson.ObjectID, updates bson.M) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID != id || e.UserID != userID {
			continue
		}
		if v, ok := updates["title"].(string); ok {
			e.Title = v
		}
		if v, ok := updates["amount"].(float64); ok {
			e.Amount = v
		}
		if v, ok := updates["category"].(string); ok {
			e.Category = v
		}
		if v, ok := updates["description"].(string); ok {
			e.Description = v
		}
		if v, ok := updates["date"].(string); ok {
			e.Date = v
		}
		copied := *e
		return &copied, nil
	}
	return nil, repository.ErrEntryNotFound
}

func (r *fakeEntryRepo) Delete(_ context.Context, userID, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id && e.UserID == userID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return repository.ErrEntryNotFound
}

func (r *fakeEntryRepo) ownedLocked(userID bson.ObjectID) []*domain.Entry {
	owned := make([]*domain.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.UserID == userID {
			owned = append(owned, e)
		}
	}
	return owned
}
