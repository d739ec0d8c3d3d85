// Package repository is the record store for users and inspection forms.
//
// Implementations translate store failures into the kinds in internal/errs:
// a missing row is errs.ErrNotFound, a unique index violation or a version
// mismatch on update is errs.ErrConflict.
package repository

import (
	"context"

	"inspection_log/internal/model"
)

// FormRepository stores inspection forms
type FormRepository interface {
	List(ctx context.Context) ([]model.InspectionForm, error)
	FindByID(ctx context.Context, id int) (*model.InspectionForm, error)
	FindByDocumentNo(ctx context.Context, documentNo string) (*model.InspectionForm, error)
	FindByStatus(ctx context.Context, status model.FormStatus) ([]model.InspectionForm, error)
	FindBySubmitter(ctx context.Context, submittedBy string) ([]model.InspectionForm, error)
	FindByReviewer(ctx context.Context, reviewedBy string) ([]model.InspectionForm, error)
	FindByProduct(ctx context.Context, product string) ([]model.InspectionForm, error)
	FindByVariant(ctx context.Context, variant string) ([]model.InspectionForm, error)
	// FindByInspectionDateBetween returns forms inspected in [start, end].
	FindByInspectionDateBetween(ctx context.Context, start, end model.Date) ([]model.InspectionForm, error)
	FindDocumentNosWithPrefix(ctx context.Context, prefix string) ([]string, error)
	Create(ctx context.Context, form *model.InspectionForm) error
	// Update writes every column of form if its Version is current and
	// increments Version.
	Update(ctx context.Context, form *model.InspectionForm) error
	Delete(ctx context.Context, id int) error
}

// UserRepository stores users
type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByRole(ctx context.Context, role model.Role) ([]model.User, error)
	FindByActive(ctx context.Context, active bool) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int) error
}
