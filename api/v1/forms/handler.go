package forms

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inspection_log/api/v1/middleware"
	"inspection_log/internal/httpx"
	"inspection_log/internal/model"
	"inspection_log/internal/report"
	"inspection_log/internal/service"
)

// DateRangeRequest represents GET /forms/date-range query
type DateRangeRequest struct {
	StartDate string `form:"startDate" binding:"required"`
	EndDate   string `form:"endDate" binding:"required"`
}

// ReviewRequest represents approve/reject query parameters
type ReviewRequest struct {
	ReviewedBy string `form:"reviewedBy"`
	Comments   string `form:"comments"`
}

// Handler handles inspection form API
type Handler struct {
	forms *service.FormService
}

// NewHandler creates a new forms handler
func NewHandler(forms *service.FormService) *Handler {
	return &Handler{forms: forms}
}

// Register mounts the form routes on g
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/export", h.Export)
	g.GET("/search", h.Search)
	g.GET("/date-range", h.DateRange)
	g.GET("/status/:status", h.ByStatus)
	g.GET("/submitter/:name", h.BySubmitter)
	g.GET("/reviewer/:name", h.ByReviewer)
	g.GET("/variant/:variant", h.ByVariant)
	g.GET("/document/:documentNo", h.ByDocumentNo)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/pdf", h.PDF)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid id"))
		return 0, false
	}
	return id, true
}

// actor returns the named query parameter, falling back to the token user
func actor(c *gin.Context, param string) string {
	if v := c.Query(param); v != "" {
		return v
	}
	return c.GetString(middleware.CtxUsername)
}

func respondList(c *gin.Context, forms []model.InspectionForm, err error) {
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, forms)
}

// List handles GET /api/v1/forms
func (h *Handler) List(c *gin.Context) {
	forms, err := h.forms.List(c.Request.Context())
	respondList(c, forms, err)
}

// Get handles GET /api/v1/forms/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	form, err := h.forms.Get(c.Request.Context(), id)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, form)
}

// ByDocumentNo handles GET /api/v1/forms/document/:documentNo
func (h *Handler) ByDocumentNo(c *gin.Context) {
	form, err := h.forms.GetByDocumentNo(c.Request.Context(), c.Param("documentNo"))
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, form)
}

// ByStatus handles GET /api/v1/forms/status/:status
func (h *Handler) ByStatus(c *gin.Context) {
	forms, err := h.forms.ListByStatus(c.Request.Context(), c.Param("status"))
	respondList(c, forms, err)
}

// BySubmitter handles GET /api/v1/forms/submitter/:name
func (h *Handler) BySubmitter(c *gin.Context) {
	forms, err := h.forms.ListBySubmitter(c.Request.Context(), c.Param("name"))
	respondList(c, forms, err)
}

// ByReviewer handles GET /api/v1/forms/reviewer/:name
func (h *Handler) ByReviewer(c *gin.Context) {
	forms, err := h.forms.ListByReviewer(c.Request.Context(), c.Param("name"))
	respondList(c, forms, err)
}

// ByVariant handles GET /api/v1/forms/variant/:variant
func (h *Handler) ByVariant(c *gin.Context) {
	forms, err := h.forms.ListByVariant(c.Request.Context(), c.Param("variant"))
	respondList(c, forms, err)
}

// Search handles GET /api/v1/forms/search?product=
func (h *Handler) Search(c *gin.Context) {
	product := c.Query("product")
	if product == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("product is required"))
		return
	}
	forms, err := h.forms.SearchByProduct(c.Request.Context(), product)
	respondList(c, forms, err)
}

// DateRange handles GET /api/v1/forms/date-range
func (h *Handler) DateRange(c *gin.Context) {
	var req DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("startDate and endDate are required"))
		return
	}
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("startDate must be YYYY-MM-DD"))
		return
	}
	end, err := model.ParseDate(req.EndDate)
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("endDate must be YYYY-MM-DD"))
		return
	}
	forms, err := h.forms.ListByInspectionDateRange(c.Request.Context(), start, end)
	respondList(c, forms, err)
}

// Create handles POST /api/v1/forms
func (h *Handler) Create(c *gin.Context) {
	var form model.InspectionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	// identity and version are assigned by the store
	form.BaseModel = model.BaseModel{}

	created, err := h.forms.Create(c.Request.Context(), &form)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.Created(c, created)
}

// Update handles PUT /api/v1/forms/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var fields model.InspectionForm
	if err := c.ShouldBindJSON(&fields); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	updated, err := h.forms.Update(c.Request.Context(), id, &fields)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, updated)
}

// Submit handles POST /api/v1/forms/:id/submit?submittedBy=
func (h *Handler) Submit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	submittedBy := actor(c, "submittedBy")
	if submittedBy == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("submittedBy is required"))
		return
	}
	form, err := h.forms.Submit(c.Request.Context(), id, submittedBy)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, form)
}

// Approve handles POST /api/v1/forms/:id/approve?reviewedBy=&comments=
func (h *Handler) Approve(c *gin.Context) {
	h.review(c, h.forms.Approve)
}

// Reject handles POST /api/v1/forms/:id/reject?reviewedBy=&comments=
func (h *Handler) Reject(c *gin.Context) {
	h.review(c, h.forms.Reject)
}

type reviewFunc func(ctx context.Context, id int, reviewedBy, comments string) (*model.InspectionForm, error)

func (h *Handler) review(c *gin.Context, do reviewFunc) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	if req.ReviewedBy == "" {
		req.ReviewedBy = c.GetString(middleware.CtxUsername)
	}
	if req.ReviewedBy == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("reviewedBy is required"))
		return
	}
	form, err := do(c.Request.Context(), id, req.ReviewedBy, req.Comments)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, form)
}

// Delete handles DELETE /api/v1/forms/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.forms.Delete(c.Request.Context(), id); err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.NoContent(c)
}

// PDF handles GET /api/v1/forms/:id/pdf
func (h *Handler) PDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	pdf, form, err := h.forms.RenderPDF(c.Request.Context(), id)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="inspection_form_%s.pdf"`, form.DocumentNo))
	c.Header("Cache-Control", "must-revalidate, post-check=0, pre-check=0")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Export handles GET /api/v1/forms/export?status=
func (h *Handler) Export(c *gin.Context) {
	var (
		forms []model.InspectionForm
		err   error
	)
	if status := c.Query("status"); status != "" {
		forms, err = h.forms.ListByStatus(c.Request.Context(), status)
	} else {
		forms, err = h.forms.List(c.Request.Context())
	}
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteFormsXLSX(forms, &buf); err != nil {
		httpx.FailErr(c, httpx.ErrInternalError("failed to export forms", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inspection_forms.xlsx"`)
	c.Data(http.StatusOK, report.XLSXContentType, buf.Bytes())
}
