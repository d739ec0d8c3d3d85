package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"inspection_log/internal/errs"
	"inspection_log/internal/model"
)

// MemoryFormRepository is an in-process FormRepository used for
// DB_DRIVER=memory and in tests. It keeps the same unique and version
// rules as the SQL store.
type MemoryFormRepository struct {
	mu     sync.RWMutex
	nextID int
	forms  map[int]*model.InspectionForm
	byDoc  map[string]int
}

// NewMemoryFormRepository creates an empty in-memory form store
func NewMemoryFormRepository() *MemoryFormRepository {
	return &MemoryFormRepository{
		nextID: 1,
		forms:  make(map[int]*model.InspectionForm),
		byDoc:  make(map[string]int),
	}
}

func (r *MemoryFormRepository) filter(keep func(*model.InspectionForm) bool) []model.InspectionForm {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.InspectionForm, 0, len(r.forms))
	for _, f := range r.forms {
		if keep(f) {
			out = append(out, *f.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryFormRepository) List(ctx context.Context) ([]model.InspectionForm, error) {
	return r.filter(func(*model.InspectionForm) bool { return true }), nil
}

func (r *MemoryFormRepository) FindByID(ctx context.Context, id int) (*model.InspectionForm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.forms[id]
	if !ok {
		return nil, fmt.Errorf("inspection form %d: %w", id, errs.ErrNotFound)
	}
	return f.Clone(), nil
}

func (r *MemoryFormRepository) FindByDocumentNo(ctx context.Context, documentNo string) (*model.InspectionForm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDoc[documentNo]
	if !ok {
		return nil, fmt.Errorf("inspection form %q: %w", documentNo, errs.ErrNotFound)
	}
	return r.forms[id].Clone(), nil
}

func (r *MemoryFormRepository) FindByStatus(ctx context.Context, status model.FormStatus) ([]model.InspectionForm, error) {
	return r.filter(func(f *model.InspectionForm) bool { return f.Status == status }), nil
}

func (r *MemoryFormRepository) FindBySubmitter(ctx context.Context, submittedBy string) ([]model.InspectionForm, error) {
	return r.filter(func(f *model.InspectionForm) bool { return f.SubmittedBy == submittedBy }), nil
}

func (r *MemoryFormRepository) FindByReviewer(ctx context.Context, reviewedBy string) ([]model.InspectionForm, error) {
	return r.filter(func(f *model.InspectionForm) bool { return f.ReviewedBy == reviewedBy }), nil
}

func (r *MemoryFormRepository) FindByProduct(ctx context.Context, product string) ([]model.InspectionForm, error) {
	needle := strings.ToLower(product)
	return r.filter(func(f *model.InspectionForm) bool {
		return strings.Contains(strings.ToLower(f.Product), needle)
	}), nil
}

func (r *MemoryFormRepository) FindByVariant(ctx context.Context, variant string) ([]model.InspectionForm, error) {
	return r.filter(func(f *model.InspectionForm) bool { return f.Variant == variant }), nil
}

func (r *MemoryFormRepository) FindByInspectionDateBetween(ctx context.Context, start, end model.Date) ([]model.InspectionForm, error) {
	return r.filter(func(f *model.InspectionForm) bool {
		if f.InspectionDate == nil {
			return false
		}
		d := *f.InspectionDate
		return !d.Before(start) && !d.After(end)
	}), nil
}

func (r *MemoryFormRepository) FindDocumentNosWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for doc := range r.byDoc {
		if strings.HasPrefix(doc, prefix) {
			out = append(out, doc)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryFormRepository) Create(ctx context.Context, form *model.InspectionForm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byDoc[form.DocumentNo]; exists {
		return fmt.Errorf("document number %q already exists: %w", form.DocumentNo, errs.ErrConflict)
	}
	now := time.Now()
	form.ID = r.nextID
	r.nextID++
	form.CreatedAt = now
	form.UpdatedAt = now
	form.Version = 0
	r.forms[form.ID] = form.Clone()
	r.byDoc[form.DocumentNo] = form.ID
	return nil
}

func (r *MemoryFormRepository) Update(ctx context.Context, form *model.InspectionForm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.forms[form.ID]
	if !ok {
		return fmt.Errorf("inspection form %d: %w", form.ID, errs.ErrNotFound)
	}
	if cur.Version != form.Version {
		return fmt.Errorf("inspection form %d was modified concurrently: %w", form.ID, errs.ErrConflict)
	}
	if id, exists := r.byDoc[form.DocumentNo]; exists && id != form.ID {
		return fmt.Errorf("document number %q already exists: %w", form.DocumentNo, errs.ErrConflict)
	}
	form.Version++
	form.CreatedAt = cur.CreatedAt
	form.UpdatedAt = time.Now()
	delete(r.byDoc, cur.DocumentNo)
	r.byDoc[form.DocumentNo] = form.ID
	r.forms[form.ID] = form.Clone()
	return nil
}

func (r *MemoryFormRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.forms[id]; ok {
		delete(r.byDoc, f.DocumentNo)
		delete(r.forms, id)
	}
	return nil
}

// MemoryUserRepository is an in-process UserRepository
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int
	users  map[int]*model.User
	byName map[string]int
}

// NewMemoryUserRepository creates an empty in-memory user store
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		nextID: 1,
		users:  make(map[int]*model.User),
		byName: make(map[string]int),
	}
}

func (r *MemoryUserRepository) filter(keep func(*model.User) bool) []model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		if keep(u) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.filter(func(*model.User) bool { return true }), nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, errs.ErrNotFound)
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *MemoryUserRepository) FindByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return r.filter(func(u *model.User) bool { return u.Role == role }), nil
}

func (r *MemoryUserRepository) FindByActive(ctx context.Context, active bool) ([]model.User, error) {
	return r.filter(func(u *model.User) bool { return u.Active == active }), nil
}

func (r *MemoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[user.Username]; exists {
		return fmt.Errorf("username %q already exists: %w", user.Username, errs.ErrConflict)
	}
	now := time.Now()
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 0
	cp := *user
	r.users[user.ID] = &cp
	r.byName[user.Username] = user.ID
	return nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", user.ID, errs.ErrNotFound)
	}
	if cur.Version != user.Version {
		return fmt.Errorf("user %d was modified concurrently: %w", user.ID, errs.ErrConflict)
	}
	if id, exists := r.byName[user.Username]; exists && id != user.ID {
		return fmt.Errorf("username %q already exists: %w", user.Username, errs.ErrConflict)
	}
	user.Version++
	user.CreatedAt = cur.CreatedAt
	user.UpdatedAt = time.Now()
	delete(r.byName, cur.Username)
	r.byName[user.Username] = user.ID
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		delete(r.byName, u.Username)
		delete(r.users, id)
	}
	return nil
}
