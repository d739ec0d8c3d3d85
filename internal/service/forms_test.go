package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspection_log/internal/docno"
	"inspection_log/internal/errs"
	"inspection_log/internal/model"
	"inspection_log/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishFormEvent(eventType string, form *model.InspectionForm) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf("%s:%d", eventType, form.ID))
}

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) Render(form *model.InspectionForm, w io.Writer) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "%PDF-1.3 "+form.DocumentNo)
	return err
}

type mapCache struct {
	data map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, formID, version int) ([]byte, bool) {
	b, ok := c.data[fmt.Sprintf("%d:%d", formID, version)]
	return b, ok
}

func (c *mapCache) Set(ctx context.Context, formID, version int, pdf []byte) {
	c.data[fmt.Sprintf("%d:%d", formID, version)] = pdf
}

// collidingRepo fails the first n creates with a conflict
type collidingRepo struct {
	repository.FormRepository
	failures int
	seen     []string
}

func (r *collidingRepo) Create(ctx context.Context, form *model.InspectionForm) error {
	r.seen = append(r.seen, form.DocumentNo)
	if r.failures > 0 {
		r.failures--
		return fmt.Errorf("document number %q already exists: %w", form.DocumentNo, errs.ErrConflict)
	}
	return r.FormRepository.Create(ctx, form)
}

type fixture struct {
	svc       *FormService
	repo      *repository.MemoryFormRepository
	publisher *recordingPublisher
	renderer  *stubRenderer
	clock     *time.Time
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	now := time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		repo:      repository.NewMemoryFormRepository(),
		publisher: &recordingPublisher{},
		renderer:  &stubRenderer{},
		clock:     &now,
	}
	f.svc = NewFormService(FormServiceConfig{
		Repo:      f.repo,
		Policy:    docno.NewPolicy(docno.DefaultPrefix),
		Strict:    strict,
		Publisher: f.publisher,
		Renderer:  f.renderer,
		Logger:    logrus.NewEntry(logger),
		Now:       func() time.Time { return *f.clock },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func sampleForm() *model.InspectionForm {
	return &model.InspectionForm{
		Product:  "Perfume Bottle 50ml",
		Variant:  "Frosted",
		Customer: "Acme Fragrances",
		Lacquers: []model.Lacquer{
			{ID: 1, Name: "Clear Extn", Weight: "12", BatchNo: "B-1001", ExpiryDate: model.DatePtr(model.NewDate(2025, 12, 31))},
			{ID: 2, Name: "Red Dye", Weight: "350", BatchNo: "B-2002"},
		},
		Characteristics: []model.Characteristic{
			{ID: 1, Name: "Colour Shade", Observation: "Matching with Ref. Sample", Comments: "OK"},
			{ID: 2, Name: "Coating Thickness", BodyThickness: "20 mic", BottomThickness: "10.2 mic"},
		},
	}
}

func TestFormService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^AGI-APR-25-\d+$`), created.DocumentNo)
	assert.Equal(t, model.FormStatusDraft, created.Status)

	f.advance(time.Minute)
	submitted, err := f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusSubmitted, submitted.Status)
	assert.Equal(t, "alice", submitted.SubmittedBy)
	require.NotNil(t, submitted.SubmittedAt)

	f.advance(time.Minute)
	approved, err := f.svc.Approve(ctx, created.ID, "bob", "ok")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusApproved, approved.Status)
	assert.Equal(t, "bob", approved.ReviewedBy)
	assert.Equal(t, "ok", approved.Comments)
	require.NotNil(t, approved.ReviewedAt)
	require.NotNil(t, approved.SubmittedAt)
	assert.False(t, approved.ReviewedAt.Before(*approved.SubmittedAt))

	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusApproved, stored.Status)

	assert.Equal(t, []string{
		"created:1", "submitted:1", "approved:1",
	}, f.publisher.events)
}

func TestFormService_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, &model.InspectionForm{Product: "Jar"})
	require.NoError(t, err)

	today := model.NewDate(2025, time.March, 9)
	assert.Equal(t, "AGI-APR-25-1", created.DocumentNo)
	assert.Equal(t, "00", created.IssuanceNo)
	require.NotNil(t, created.IssueDate)
	assert.Equal(t, today.String(), created.IssueDate.String())
	require.NotNil(t, created.InspectionDate)
	assert.Equal(t, today.String(), created.InspectionDate.String())
	assert.Equal(t, model.FormStatusDraft, created.Status)
	assert.Nil(t, created.SubmittedAt)
	assert.Nil(t, created.ReviewedAt)
}

func TestFormService_CreateKeepsSuppliedValues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	in := sampleForm()
	in.DocumentNo = "AGI-DEC-14-04"
	in.IssuanceNo = "02"
	in.Status = model.FormStatusSubmitted
	in.IssueDate = model.DatePtr(model.NewDate(2014, 12, 1))

	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "AGI-DEC-14-04", created.DocumentNo)
	assert.Equal(t, "02", created.IssuanceNo)
	assert.Equal(t, model.FormStatusSubmitted, created.Status)
	assert.Equal(t, "2014-12-01", created.IssueDate.String())
}

func TestFormService_CreateNormalisesStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	in := sampleForm()
	in.Status = "draft"
	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusDraft, created.Status)

	stored, err := f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusDraft, stored.Status)

	drafts, err := f.svc.ListByStatus(ctx, "DRAFT")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, created.ID, drafts[0].ID)

	submitted, err := f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusSubmitted, submitted.Status)
}

func TestFormService_CreateRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Create(context.Background(), &model.InspectionForm{Status: "ARCHIVED"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestFormService_NumberingIsMaxPlusOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	for _, no := range []string{"AGI-APR-25-1", "AGI-APR-25-3", "AGI-APR-24-9", "AGI-APR-25-x"} {
		_, err := f.svc.Create(ctx, &model.InspectionForm{DocumentNo: no})
		require.NoError(t, err)
	}

	created, err := f.svc.Create(ctx, &model.InspectionForm{})
	require.NoError(t, err)
	assert.Equal(t, "AGI-APR-25-4", created.DocumentNo)
}

func TestFormService_DuplicateDocumentNo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.svc.Create(ctx, &model.InspectionForm{DocumentNo: "AGI-APR-25-7"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, &model.InspectionForm{DocumentNo: "AGI-APR-25-7"})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestFormService_CreateRetriesGeneratedNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	repo := &collidingRepo{FormRepository: f.repo, failures: 2}
	f.svc.repo = repo

	created, err := f.svc.Create(ctx, &model.InspectionForm{})
	require.NoError(t, err)
	assert.Equal(t, "AGI-APR-25-1", created.DocumentNo)
	assert.Len(t, repo.seen, 3)
}

func TestFormService_CreateGivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	repo := &collidingRepo{FormRepository: f.repo, failures: 10}
	f.svc.repo = repo

	_, err := f.svc.Create(ctx, &model.InspectionForm{})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Len(t, repo.seen, defaultCreateAttempts)
}

func TestFormService_ChildListsRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	in := sampleForm()
	want := in.Clone()

	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Lacquers, got.Lacquers)
	assert.Equal(t, want.Characteristics, got.Characteristics)
}

func TestFormService_UpdatePreservesWorkflowFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, created.ID, "bob", "fine")
	require.NoError(t, err)

	edit := sampleForm()
	edit.DocumentNo = created.DocumentNo
	edit.Product = "Jar 100ml"
	edit.Status = model.FormStatusDraft
	edit.SubmittedBy = "mallory"
	edit.Characteristics = edit.Characteristics[:1]

	updated, err := f.svc.Update(ctx, created.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "Jar 100ml", updated.Product)
	assert.Len(t, updated.Characteristics, 1)
	assert.Equal(t, model.FormStatusApproved, updated.Status)
	assert.Equal(t, "alice", updated.SubmittedBy)
	assert.Equal(t, "bob", updated.ReviewedBy)
}

func TestFormService_UpdateMissing(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Update(context.Background(), 404, sampleForm())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFormService_StaleWriteIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	stale, err := f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)

	stale.Product = "lost update"
	assert.ErrorIs(t, f.repo.Update(ctx, stale), errs.ErrConflict)
}

func TestFormService_RejectRequiresComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, created.ID, "bob", "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	rejected, err := f.svc.Reject(ctx, created.ID, "bob", "coating too thin")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusRejected, rejected.Status)
	assert.Equal(t, "coating too thin", rejected.Comments)
	assert.NotNil(t, rejected.ReviewedAt)
}

func TestFormService_UnguardedTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, created.ID, "bob", "")
	require.NoError(t, err, "approve from DRAFT is allowed without the guard")

	resubmitted, err := f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusSubmitted, resubmitted.Status)
}

func TestFormService_StrictTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, created.ID, "bob", "")
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	_, err = f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, created.ID, "alice")
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	_, err = f.svc.Reject(ctx, created.ID, "bob", "no")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, created.ID, "bob", "")
	assert.ErrorIs(t, err, errs.ErrStateConflict)
}

func TestFormService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	a, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)
	b := sampleForm()
	b.Product = "Jar"
	b.Variant = "Clear"
	b.InspectionDate = model.DatePtr(model.NewDate(2025, 1, 15))
	bCreated, err := f.svc.Create(ctx, b)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, a.ID, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, a.ID, "bob", "")
	require.NoError(t, err)

	byStatus, err := f.svc.ListByStatus(ctx, "approved")
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	_, err = f.svc.ListByStatus(ctx, "bogus")
	assert.ErrorIs(t, err, errs.ErrValidation)

	bySubmitter, err := f.svc.ListBySubmitter(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, bySubmitter, 1)

	byReviewer, err := f.svc.ListByReviewer(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, byReviewer, 1)

	inJanuary, err := f.svc.ListByInspectionDateRange(ctx, model.NewDate(2025, 1, 1), model.NewDate(2025, 1, 31))
	require.NoError(t, err)
	require.Len(t, inJanuary, 1)
	assert.Equal(t, bCreated.ID, inJanuary[0].ID)

	reversed, err := f.svc.ListByInspectionDateRange(ctx, model.NewDate(2025, 2, 1), model.NewDate(2025, 1, 1))
	require.NoError(t, err)
	assert.NotNil(t, reversed)
	assert.Empty(t, reversed)

	byProduct, err := f.svc.SearchByProduct(ctx, "PERFUME")
	require.NoError(t, err)
	assert.Len(t, byProduct, 1)

	byVariant, err := f.svc.ListByVariant(ctx, "Clear")
	require.NoError(t, err)
	assert.Len(t, byVariant, 1)

	byDoc, err := f.svc.GetByDocumentNo(ctx, bCreated.DocumentNo)
	require.NoError(t, err)
	assert.Equal(t, bCreated.ID, byDoc.ID)

	numbers, err := f.svc.FindByDocumentNoPrefix(ctx, "AGI-APR-25-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AGI-APR-25-1", "AGI-APR-25-2"}, numbers)
}

func TestFormService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
}

func TestFormService_RenderPDFUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.svc.cache = &mapCache{data: map[string][]byte{}}

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	pdf, form, err := f.svc.RenderPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.DocumentNo, form.DocumentNo)
	assert.Contains(t, string(pdf), "%PDF-")

	_, _, err = f.svc.RenderPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.renderer.calls)

	_, err = f.svc.Submit(ctx, created.ID, "alice")
	require.NoError(t, err)
	_, _, err = f.svc.RenderPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.renderer.calls, "a new version must be rendered again")
}

func TestFormService_RenderPDFFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	f.renderer.err = fmt.Errorf("layout broke: %w", errs.ErrRender)

	created, err := f.svc.Create(ctx, sampleForm())
	require.NoError(t, err)

	_, _, err = f.svc.RenderPDF(ctx, created.ID)
	assert.True(t, errors.Is(err, errs.ErrRender))

	_, _, err = f.svc.RenderPDF(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
