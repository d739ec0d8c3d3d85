package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"inspection_log/internal/errs"
	"inspection_log/internal/model"
)

// GormFormRepository is a FormRepository backed by gorm
type GormFormRepository struct {
	db *gorm.DB
}

// NewGormFormRepository creates a new gorm form repository
func NewGormFormRepository(db *gorm.DB) *GormFormRepository {
	return &GormFormRepository{db: db}
}

func (r *GormFormRepository) find(ctx context.Context, query string, args ...interface{}) ([]model.InspectionForm, error) {
	var forms []model.InspectionForm
	q := r.db.WithContext(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Order("id ASC").Find(&forms).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch inspection forms: %w", err)
	}
	return forms, nil
}

func (r *GormFormRepository) List(ctx context.Context) ([]model.InspectionForm, error) {
	return r.find(ctx, "")
}

func (r *GormFormRepository) FindByID(ctx context.Context, id int) (*model.InspectionForm, error) {
	var form model.InspectionForm
	if err := r.db.WithContext(ctx).First(&form, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("inspection form %d: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find inspection form %d: %w", id, err)
	}
	return &form, nil
}

func (r *GormFormRepository) FindByDocumentNo(ctx context.Context, documentNo string) (*model.InspectionForm, error) {
	var form model.InspectionForm
	if err := r.db.WithContext(ctx).Where("document_no = ?", documentNo).First(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("inspection form %q: %w", documentNo, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find inspection form %q: %w", documentNo, err)
	}
	return &form, nil
}

func (r *GormFormRepository) FindByStatus(ctx context.Context, status model.FormStatus) ([]model.InspectionForm, error) {
	return r.find(ctx, "status = ?", status)
}

func (r *GormFormRepository) FindBySubmitter(ctx context.Context, submittedBy string) ([]model.InspectionForm, error) {
	return r.find(ctx, "submitted_by = ?", submittedBy)
}

func (r *GormFormRepository) FindByReviewer(ctx context.Context, reviewedBy string) ([]model.InspectionForm, error) {
	return r.find(ctx, "reviewed_by = ?", reviewedBy)
}

func (r *GormFormRepository) FindByProduct(ctx context.Context, product string) ([]model.InspectionForm, error) {
	return r.find(ctx, "LOWER(product) LIKE ?", "%"+escapeLike(strings.ToLower(product))+"%")
}

func (r *GormFormRepository) FindByVariant(ctx context.Context, variant string) ([]model.InspectionForm, error) {
	return r.find(ctx, "variant = ?", variant)
}

func (r *GormFormRepository) FindByInspectionDateBetween(ctx context.Context, start, end model.Date) ([]model.InspectionForm, error) {
	return r.find(ctx, "inspection_date BETWEEN ? AND ?", start, end)
}

func (r *GormFormRepository) FindDocumentNosWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&model.InspectionForm{}).
		Where("document_no LIKE ?", escapeLike(prefix)+"%").
		Pluck("document_no", &numbers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch document numbers: %w", err)
	}
	return numbers, nil
}

func (r *GormFormRepository) Create(ctx context.Context, form *model.InspectionForm) error {
	if err := r.db.WithContext(ctx).Create(form).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("document number %q already exists: %w", form.DocumentNo, errs.ErrConflict)
		}
		return fmt.Errorf("failed to create inspection form: %w", err)
	}
	return nil
}

func (r *GormFormRepository) Update(ctx context.Context, form *model.InspectionForm) error {
	prev := form.Version
	form.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(form).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(form)
	if res.Error != nil {
		form.Version = prev
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("document number %q already exists: %w", form.DocumentNo, errs.ErrConflict)
		}
		return fmt.Errorf("failed to update inspection form %d: %w", form.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		form.Version = prev
		return fmt.Errorf("inspection form %d was modified concurrently: %w", form.ID, errs.ErrConflict)
	}
	return nil
}

func (r *GormFormRepository) Delete(ctx context.Context, id int) error {
	if err := r.db.WithContext(ctx).Delete(&model.InspectionForm{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete inspection form %d: %w", id, err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so prefixes match literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
