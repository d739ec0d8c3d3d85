package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inspection_log/internal/docno"
	"inspection_log/internal/errs"
	"inspection_log/internal/metrics"
	"inspection_log/internal/model"
	"inspection_log/internal/repository"
)

// Form event types published on every successful mutation
const (
	EventCreated   = "created"
	EventUpdated   = "updated"
	EventSubmitted = "submitted"
	EventApproved  = "approved"
	EventRejected  = "rejected"
	EventDeleted   = "deleted"
)

// DefaultIssuanceNo is assigned when a form is created without one
const DefaultIssuanceNo = "00"

// defaultCreateAttempts bounds renumbering when a generated document
// number collides with a concurrent create.
const defaultCreateAttempts = 3

// FormEventPublisher receives form mutations for fan-out to clients
type FormEventPublisher interface {
	PublishFormEvent(eventType string, form *model.InspectionForm)
}

// ReportRenderer writes a PDF report for a form
type ReportRenderer interface {
	Render(form *model.InspectionForm, w io.Writer) error
}

// ReportCache stores rendered reports keyed by form id and version
type ReportCache interface {
	Get(ctx context.Context, formID, version int) ([]byte, bool)
	Set(ctx context.Context, formID, version int, pdf []byte)
}

// FormServiceConfig holds the collaborators of a FormService
type FormServiceConfig struct {
	Repo      repository.FormRepository
	Policy    docno.Policy
	Strict    bool
	Publisher FormEventPublisher
	Renderer  ReportRenderer
	Cache     ReportCache
	Logger    *logrus.Entry
	// Now defaults to time.Now
	Now func() time.Time
	// CreateAttempts defaults to 3
	CreateAttempts int
}

// FormService is the inspection form workflow engine
type FormService struct {
	repo      repository.FormRepository
	policy    docno.Policy
	strict    bool
	publisher FormEventPublisher
	renderer  ReportRenderer
	cache     ReportCache
	logger    *logrus.Entry
	now       func() time.Time
	attempts  int
}

// NewFormService creates a new form service
func NewFormService(cfg FormServiceConfig) *FormService {
	s := &FormService{
		repo:      cfg.Repo,
		policy:    cfg.Policy,
		strict:    cfg.Strict,
		publisher: cfg.Publisher,
		renderer:  cfg.Renderer,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		now:       cfg.Now,
		attempts:  cfg.CreateAttempts,
	}
	if s.policy.Prefix() == "" {
		s.policy = docno.NewPolicy("")
	}
	if s.logger == nil {
		s.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s.logger = s.logger.WithField("component", "form-service")
	if s.now == nil {
		s.now = time.Now
	}
	if s.attempts <= 0 {
		s.attempts = defaultCreateAttempts
	}
	return s
}

// List returns every form
func (s *FormService) List(ctx context.Context) ([]model.InspectionForm, error) {
	return s.repo.List(ctx)
}

// Get returns the form with id
func (s *FormService) Get(ctx context.Context, id int) (*model.InspectionForm, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByDocumentNo returns the form with the exact document number
func (s *FormService) GetByDocumentNo(ctx context.Context, documentNo string) (*model.InspectionForm, error) {
	return s.repo.FindByDocumentNo(ctx, documentNo)
}

// ListByStatus parses raw case-insensitively and returns matching forms
func (s *FormService) ListByStatus(ctx context.Context, raw string) ([]model.InspectionForm, error) {
	status, err := model.ParseFormStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByStatus(ctx, status)
}

// ListBySubmitter returns forms submitted by name
func (s *FormService) ListBySubmitter(ctx context.Context, name string) ([]model.InspectionForm, error) {
	return s.repo.FindBySubmitter(ctx, name)
}

// ListByReviewer returns forms reviewed by name
func (s *FormService) ListByReviewer(ctx context.Context, name string) ([]model.InspectionForm, error) {
	return s.repo.FindByReviewer(ctx, name)
}

// ListByInspectionDateRange returns forms inspected in [start, end]. A
// range ending before it starts is empty.
func (s *FormService) ListByInspectionDateRange(ctx context.Context, start, end model.Date) ([]model.InspectionForm, error) {
	if end.Before(start) {
		return []model.InspectionForm{}, nil
	}
	return s.repo.FindByInspectionDateBetween(ctx, start, end)
}

// SearchByProduct returns forms whose product contains product, ignoring case
func (s *FormService) SearchByProduct(ctx context.Context, product string) ([]model.InspectionForm, error) {
	return s.repo.FindByProduct(ctx, product)
}

// ListByVariant returns forms with the given variant
func (s *FormService) ListByVariant(ctx context.Context, variant string) ([]model.InspectionForm, error) {
	return s.repo.FindByVariant(ctx, variant)
}

// FindByDocumentNoPrefix returns the document numbers starting with prefix
func (s *FormService) FindByDocumentNoPrefix(ctx context.Context, prefix string) ([]string, error) {
	return s.repo.FindDocumentNosWithPrefix(ctx, prefix)
}

// NextDocumentNo computes the next free number for the current year
func (s *FormService) NextDocumentNo(ctx context.Context) (string, error) {
	now := s.now()
	existing, err := s.FindByDocumentNoPrefix(ctx, s.policy.YearPrefix(now))
	if err != nil {
		return "", err
	}
	return s.policy.Next(now, existing), nil
}

// Create applies defaults and stores a new form. A generated document
// number that collides with a concurrent create is recomputed; a
// caller-supplied one fails with errs.ErrConflict.
func (s *FormService) Create(ctx context.Context, form *model.InspectionForm) (*model.InspectionForm, error) {
	now := s.now()
	today := model.DateOf(now)

	if form.Status == "" {
		form.Status = model.FormStatusDraft
	} else {
		status, err := model.ParseFormStatus(string(form.Status))
		if err != nil {
			return nil, err
		}
		form.Status = status
	}
	if form.IssueDate == nil {
		form.IssueDate = model.DatePtr(today)
	}
	if form.InspectionDate == nil {
		form.InspectionDate = model.DatePtr(today)
	}
	if strings.TrimSpace(form.IssuanceNo) == "" {
		form.IssuanceNo = DefaultIssuanceNo
	}

	generated := strings.TrimSpace(form.DocumentNo) == ""
	for attempt := 1; ; attempt++ {
		if generated {
			number, err := s.NextDocumentNo(ctx)
			if err != nil {
				return nil, err
			}
			form.DocumentNo = number
		}

		err := s.repo.Create(ctx, form)
		if err == nil {
			break
		}
		if !generated || !errors.Is(err, errs.ErrConflict) || attempt >= s.attempts {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"document_no": form.DocumentNo,
			"attempt":     attempt,
		}).Warn("Generated document number already taken, renumbering")
	}

	s.logger.WithFields(logrus.Fields{
		"form_id":     form.ID,
		"document_no": form.DocumentNo,
	}).Info("Inspection form created")
	s.publish(EventCreated, form)
	return form, nil
}

// Update overwrites every editable field of the form with id. Status,
// submission and review metadata are preserved.
func (s *FormService) Update(ctx context.Context, id int, fields *model.InspectionForm) (*model.InspectionForm, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.ApplyEdits(fields)
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, err
	}
	s.publish(EventUpdated, form)
	return form, nil
}

// Submit moves the form to SUBMITTED
func (s *FormService) Submit(ctx context.Context, id int, submittedBy string) (*model.InspectionForm, error) {
	return s.transition(ctx, id, model.FormStatusSubmitted, EventSubmitted, func(f *model.InspectionForm, now time.Time) {
		f.SubmittedBy = submittedBy
		f.SubmittedAt = &now
	})
}

// Approve moves the form to APPROVED. comments may be empty.
func (s *FormService) Approve(ctx context.Context, id int, reviewedBy, comments string) (*model.InspectionForm, error) {
	return s.transition(ctx, id, model.FormStatusApproved, EventApproved, func(f *model.InspectionForm, now time.Time) {
		f.ReviewedBy = reviewedBy
		f.ReviewedAt = &now
		f.Comments = comments
	})
}

// Reject moves the form to REJECTED. comments are required.
func (s *FormService) Reject(ctx context.Context, id int, reviewedBy, comments string) (*model.InspectionForm, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, fmt.Errorf("rejection requires comments: %w", errs.ErrValidation)
	}
	return s.transition(ctx, id, model.FormStatusRejected, EventRejected, func(f *model.InspectionForm, now time.Time) {
		f.ReviewedBy = reviewedBy
		f.ReviewedAt = &now
		f.Comments = comments
	})
}

func (s *FormService) transition(ctx context.Context, id int, to model.FormStatus, event string, apply func(*model.InspectionForm, time.Time)) (*model.InspectionForm, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.strict && !allowed(form.Status, to) {
		return nil, fmt.Errorf("form %d is %s, cannot move to %s: %w", id, form.Status, to, errs.ErrStateConflict)
	}

	from := form.Status
	form.Status = to
	apply(form, s.now())
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, err
	}

	metrics.ObserveTransition(string(to))
	s.logger.WithFields(logrus.Fields{
		"form_id": id,
		"from":    from,
		"to":      to,
	}).Info("Inspection form status changed")
	s.publish(event, form)
	return form, nil
}

// allowed is the strict-mode transition table
func allowed(from, to model.FormStatus) bool {
	switch to {
	case model.FormStatusSubmitted:
		return from == model.FormStatusDraft
	case model.FormStatusApproved, model.FormStatusRejected:
		return from == model.FormStatusSubmitted
	}
	return false
}

// Delete removes the form with id. Deleting a missing id is not an error.
func (s *FormService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(EventDeleted, &model.InspectionForm{BaseModel: model.BaseModel{ID: id}})
	return nil
}

// RenderPDF returns the PDF report of the form with id and the form itself
func (s *FormService) RenderPDF(ctx context.Context, id int) ([]byte, *model.InspectionForm, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.cache != nil {
		pdf, ok := s.cache.Get(ctx, form.ID, form.Version)
		metrics.ObserveReportCache(ok)
		if ok {
			return pdf, form, nil
		}
	}
	if s.renderer == nil {
		return nil, nil, fmt.Errorf("no report renderer configured: %w", errs.ErrRender)
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := s.renderer.Render(form, &buf); err != nil {
		metrics.ObserveReportRender("error", time.Since(start))
		s.logger.WithError(err).WithField("form_id", id).Error("Failed to render inspection report")
		return nil, nil, err
	}
	metrics.ObserveReportRender("ok", time.Since(start))

	pdf := buf.Bytes()
	if s.cache != nil {
		s.cache.Set(ctx, form.ID, form.Version, pdf)
	}
	return pdf, form, nil
}

func (s *FormService) publish(eventType string, form *model.InspectionForm) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishFormEvent(eventType, form)
}
