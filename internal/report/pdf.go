// Package report renders inspection forms as a first-article inspection
// PDF and exports form lists as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"inspection_log/internal/errs"
	"inspection_log/internal/model"
)

// Asset file names looked up in the assets directory
const (
	LogoFile              = "agilogo.png"
	QASignatureFile       = "QASign.png"
	OperatorSignatureFile = "OperatorSign.png"
)

const (
	dateLayout     = "02-01-2006"
	datetimeLayout = "02/01/2006, 15:04:05"

	fontFamily = "Helvetica"
	margin     = 10.0
	lineH      = 5.0
	headerRowH = 5.0

	signaturePlaceholder = "______________________"
	dualPointName        = "Coating Thickness"
)

var headerFill = [3]int{230, 230, 230}

// PDFRenderer draws the A4 inspection report
type PDFRenderer struct {
	assetsDir string
	logger    *logrus.Entry
	compress  bool
}

// NewPDFRenderer creates a renderer reading images from assetsDir
func NewPDFRenderer(assetsDir string, logger *logrus.Entry) *PDFRenderer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PDFRenderer{
		assetsDir: assetsDir,
		logger:    logger.WithField("component", "pdf-renderer"),
		compress:  true,
	}
}

// Render writes the report for form to w. Missing or unreadable images
// are replaced by text; any other failure is errs.ErrRender.
func (r *PDFRenderer) Render(form *model.InspectionForm, w io.Writer) error {
	if form == nil {
		return fmt.Errorf("nil form: %w", errs.ErrRender)
	}

	doc := &document{
		pdf:    fpdf.New("P", "mm", "A4", ""),
		form:   form,
		r:      r,
		images: make(map[string]*fpdf.ImageInfoType),
	}
	doc.tr = doc.pdf.UnicodeTranslatorFromDescriptor("")
	doc.pdf.SetCompression(r.compress)
	doc.pdf.SetMargins(margin, margin, margin)
	doc.pdf.SetAutoPageBreak(true, margin)
	doc.pdf.SetTitle("Inspection Form "+form.DocumentNo, true)
	doc.pdf.SetCreator("inspection_log", true)
	doc.pdf.AddPage()

	doc.header()
	doc.info()
	doc.lacquers()
	doc.characteristics()
	doc.signatures()
	doc.review()

	if err := doc.pdf.Error(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrRender, err)
	}
	if err := doc.pdf.Output(w); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrRender, err)
	}
	return nil
}

// loadImage registers an asset with pdf. It returns nil when the file is
// missing or not a decodable image, so a bad asset never poisons the
// document.
func (r *PDFRenderer) loadImage(pdf *fpdf.Fpdf, name string) *fpdf.ImageInfoType {
	path := filepath.Join(r.assetsDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.WithError(err).WithField("asset", path).Debug("Report asset unavailable, using text fallback")
		return nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.logger.WithError(err).WithField("asset", path).Warn("Report asset is not a valid image, using text fallback")
		return nil
	}

	// fpdf only reads 8-bit non-interlaced PNGs
	bounds := src.Bounds()
	normalized := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(normalized, normalized.Bounds(), src, bounds.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		r.logger.WithError(err).WithField("asset", path).Warn("Failed to re-encode report asset")
		return nil
	}

	info := pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if !pdf.Ok() {
		return nil
	}
	return info
}

type document struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	form   *model.InspectionForm
	r      *PDFRenderer
	images map[string]*fpdf.ImageInfoType
}

func (d *document) image(name string) *fpdf.ImageInfoType {
	if info, ok := d.images[name]; ok {
		return info
	}
	info := d.r.loadImage(d.pdf, name)
	d.images[name] = info
	return info
}

func (d *document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	return w - left - right
}

func (d *document) bold(size float64) {
	d.pdf.SetFont(fontFamily, "B", size)
}

func (d *document) regular(size float64) {
	d.pdf.SetFont(fontFamily, "", size)
}

func (d *document) fillHeader() {
	d.pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
}

func (d *document) gap() {
	d.pdf.Ln(lineH)
}

// ensureSpace starts a new page when h does not fit on the current one
func (d *document) ensureSpace(h float64) bool {
	_, pageH := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	if d.pdf.GetY()+h > pageH-bottom {
		d.pdf.AddPage()
		return true
	}
	return false
}

func formatDate(dt *model.Date) string {
	if dt == nil {
		return ""
	}
	return dt.Format(dateLayout)
}

func (d *document) header() {
	pdf := d.pdf
	width := d.contentWidth()
	left := width * 0.30
	middle := width * 0.40
	right := width - left - middle
	x0, y0 := pdf.GetXY()

	rows := [][2]string{
		{"Document No. :", d.form.DocumentNo},
		{"Issuance No. :", d.form.IssuanceNo},
		{"Date of Issue :", formatDate(d.form.IssueDate)},
		{"Reviewed by :", formatDate(d.form.ReviewedDate)},
		{"Page :", d.form.Page},
		{"Prepared By :", d.form.PreparedBy},
		{"Approved by :", d.form.ApprovedBy},
		{"Issued :", d.form.Issued},
	}
	labelW := left * 0.5
	for i, row := range rows {
		pdf.SetXY(x0, y0+float64(i)*headerRowH)
		d.bold(7)
		pdf.CellFormat(labelW, headerRowH, d.tr(row[0]), "1", 0, "L", false, 0, "")
		d.regular(7)
		pdf.CellFormat(left-labelW, headerRowH, d.tr(row[1]), "1", 0, "L", false, 0, "")
	}
	height := float64(len(rows)) * headerRowH

	pdf.SetXY(x0+left, y0+2)
	d.bold(14)
	pdf.CellFormat(middle, 7, d.tr("AGI Greenpac Limited"), "", 2, "C", false, 0, "")
	d.regular(9)
	pdf.CellFormat(middle, 5, d.tr("Unit :- AGI Speciality Glas Division"), "", 2, "C", false, 0, "")
	pdf.SetXY(x0+left, y0+height-12)
	d.bold(8)
	pdf.CellFormat(middle, 5, d.tr("SCOPE : AGI / DEC / COATING"), "", 2, "C", false, 0, "")
	pdf.CellFormat(middle, 5, d.tr("TITLE : FIRST ARTICLE INSPECTION REPORT - COATING"), "", 2, "C", false, 0, "")

	boxX := x0 + left + middle
	if logo := d.image(LogoFile); logo != nil {
		w, h := fit(logo.Width(), logo.Height(), right-8, height-8)
		pdf.ImageOptions(LogoFile, boxX+(right-w)/2, y0+(height-h)/2, w, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	} else {
		// text badge in place of the logo
		d.bold(16)
		pdf.SetXY(boxX+(right-24)/2, y0+(height-12)/2)
		pdf.CellFormat(24, 12, "AGI", "1", 0, "C", false, 0, "")
	}

	pdf.Rect(x0, y0, width, height, "D")
	pdf.Line(x0+left+middle, y0, x0+left+middle, y0+height)
	pdf.SetXY(x0, y0+height)
}

// fit scales w×h to fit inside maxW×maxH keeping the aspect ratio
func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}

func (d *document) info() {
	pdf := d.pdf
	width := d.contentWidth()
	colW := width / 3
	x0, y0 := pdf.GetXY()

	columns := [][][2]string{
		{{"Date:", formatDate(d.form.InspectionDate)}, {"Product:", d.form.Product}, {"Size No.:", d.form.SizeNo}},
		{{"Shift:", d.form.Shift}, {"Variant:", d.form.Variant}},
		{{"Line No.:", d.form.LineNo}, {"Customer:", d.form.Customer}, {"Sample Size:", d.form.SampleSize}},
	}
	for i, col := range columns {
		x := x0 + float64(i)*colW
		for j, row := range col {
			pdf.SetXY(x+1, y0+1+float64(j)*lineH)
			d.bold(8)
			pdf.CellFormat(colW*0.4, lineH, d.tr(row[0]), "", 0, "L", false, 0, "")
			d.regular(8)
			pdf.CellFormat(colW*0.6-2, lineH, d.tr(row[1]), "", 0, "L", false, 0, "")
		}
	}

	height := 3*lineH + 2
	pdf.Rect(x0, y0, width, height, "D")
	pdf.Line(x0+colW, y0, x0+colW, y0+height)
	pdf.Line(x0+2*colW, y0, x0+2*colW, y0+height)
	pdf.SetXY(x0, y0+height)
}

// LacquerUnit is the weight unit printed for a lacquer
func LacquerUnit(name string) string {
	if name == "Clear Extn" {
		return "kg"
	}
	return "gm"
}

func (d *document) lacquers() {
	d.gap()
	width := d.contentWidth()
	widths := scale(width, 8, 30, 15, 25, 22)
	titles := []string{"S.No.", "Lacquer / Dye", "wt.", "Batch No.", "Expiry Date"}
	aligns := []string{"C", "L", "C", "C", "C"}

	drawHead := func() { d.tableHead(widths, titles) }
	drawHead()

	d.regular(8)
	for _, l := range d.form.Lacquers {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		weight := strings.TrimSpace(l.Weight + " " + LacquerUnit(l.Name))
		d.tableRow(widths, aligns, []string{
			strconv.Itoa(l.ID), l.Name, weight, l.BatchNo, formatDate(l.ExpiryDate),
		}, drawHead)
	}
}

func (d *document) characteristics() {
	d.gap()
	width := d.contentWidth()
	widths := scale(width, 8, 25, 42, 25)
	aligns := []string{"C", "L", "L", "L"}

	drawHead := func() {
		pdf := d.pdf
		d.ensureSpace(2 * lineH)
		d.bold(8)
		d.fillHeader()
		x, y := pdf.GetXY()
		pdf.CellFormat(widths[0], 2*lineH, "S.No.", "1", 0, "C", true, 0, "")
		pdf.CellFormat(widths[1], 2*lineH, "Characteristic", "1", 0, "C", true, 0, "")
		ox := pdf.GetX()
		pdf.Rect(ox, y, widths[2], 2*lineH, "FD")
		pdf.SetXY(ox, y)
		pdf.CellFormat(widths[2], lineH, "As per Reference sample no. X-211", "", 2, "C", false, 0, "")
		pdf.CellFormat(widths[2], lineH, "Observations", "", 0, "C", false, 0, "")
		pdf.SetXY(ox+widths[2], y)
		pdf.CellFormat(widths[3], 2*lineH, "Comments", "1", 0, "C", true, 0, "")
		pdf.SetXY(x, y+2*lineH)
		d.regular(8)
	}
	drawHead()

	for _, c := range d.form.Characteristics {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		if IsDualPoint(c) {
			d.dualPointRow(widths, c, drawHead)
			continue
		}
		d.tableRow(widths, aligns, []string{strconv.Itoa(c.ID), c.Name, c.Observation, c.Comments}, drawHead)
	}
}

// IsDualPoint reports whether c is printed with separate Body and Bottom values
func IsDualPoint(c model.Characteristic) bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), dualPointName) && c.DualPoint()
}

func (d *document) dualPointRow(widths []float64, c model.Characteristic, drawHead func()) {
	pdf := d.pdf
	height := d.rowHeight(widths, []string{"", c.Name, "", c.Comments})
	if height < 2*lineH {
		height = 2 * lineH
	}
	if d.ensureSpace(height) {
		drawHead()
	}

	x, y := pdf.GetXY()
	d.cell(x, y, widths[0], height, "C", strconv.Itoa(c.ID))
	d.cell(x+widths[0], y, widths[1], height, "L", c.Name)

	ox := x + widths[0] + widths[1]
	half := height / 2
	labelW := widths[2] * 0.3
	pdf.Rect(ox, y, widths[2], height, "D")
	pdf.Line(ox, y+half, ox+widths[2], y+half)
	pdf.Line(ox+labelW, y, ox+labelW, y+height)
	d.bold(8)
	pdf.SetXY(ox, y)
	pdf.CellFormat(labelW, half, "Body", "", 0, "C", false, 0, "")
	pdf.SetXY(ox, y+half)
	pdf.CellFormat(labelW, half, "Bottom", "", 0, "C", false, 0, "")
	d.regular(8)
	pdf.SetXY(ox+labelW, y)
	pdf.CellFormat(widths[2]-labelW, half, d.tr(c.BodyThickness), "", 0, "C", false, 0, "")
	pdf.SetXY(ox+labelW, y+half)
	pdf.CellFormat(widths[2]-labelW, half, d.tr(c.BottomThickness), "", 0, "C", false, 0, "")

	d.cell(ox+widths[2], y, widths[3], height, "L", c.Comments)
	pdf.SetXY(x, y+height)
}

func (d *document) tableHead(widths []float64, titles []string) {
	d.ensureSpace(lineH + 2)
	d.bold(8)
	d.fillHeader()
	for i, title := range titles {
		d.pdf.CellFormat(widths[i], lineH+2, d.tr(title), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)
	d.regular(8)
}

// tableRow draws one bordered row whose height follows the tallest cell
func (d *document) tableRow(widths []float64, aligns, values []string, drawHead func()) {
	height := d.rowHeight(widths, values)
	if d.ensureSpace(height) {
		drawHead()
	}
	x, y := d.pdf.GetXY()
	cx := x
	for i, v := range values {
		d.cell(cx, y, widths[i], height, aligns[i], v)
		cx += widths[i]
	}
	d.pdf.SetXY(x, y+height)
}

func (d *document) rowHeight(widths []float64, values []string) float64 {
	lines := 1
	for i, v := range values {
		if v == "" {
			continue
		}
		if n := len(d.pdf.SplitText(latin1(v), widths[i]-2)); n > lines {
			lines = n
		}
	}
	return float64(lines)*lineH + 1
}

// latin1 replaces runes outside the core font tables, which SplitText
// cannot measure.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xff {
			return '?'
		}
		return r
	}, s)
}

func (d *document) cell(x, y, w, h float64, align, text string) {
	d.pdf.Rect(x, y, w, h, "D")
	d.pdf.SetXY(x+1, y+0.5)
	d.pdf.MultiCell(w-2, lineH, d.tr(text), "", align, false)
}

func scale(total float64, parts ...float64) []float64 {
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		out[i] = total * p / sum
	}
	return out
}

func (d *document) signatures() {
	pdf := d.pdf
	d.gap()
	width := d.contentWidth()
	half := width / 2
	blockH := 22.0
	d.ensureSpace(blockH + lineH + 2)
	x0, y0 := pdf.GetXY()

	d.signature(x0, y0, half, "QA Exe.:", d.form.QASignature, d.form.QAExecutive, QASignatureFile)
	d.signature(x0+half, y0, half, "Production Sup. / Operator:", d.form.OperatorSignature, d.form.ProductionOperator, OperatorSignatureFile)
	pdf.Rect(x0, y0, width, blockH, "D")
	pdf.Line(x0+half, y0, x0+half, y0+blockH)

	pdf.SetXY(x0, y0+blockH)
	d.bold(8)
	label := "Time (Final Approval) : "
	labelW := pdf.GetStringWidth(label) + 2
	pdf.CellFormat(labelW, lineH+2, label, "LTB", 0, "L", false, 0, "")
	d.regular(8)
	pdf.CellFormat(width-labelW, lineH+2, d.tr(d.form.FinalApprovalTime), "RTB", 1, "L", false, 0, "")
}

func (d *document) signature(x, y, w float64, label, signature, signer, asset string) {
	pdf := d.pdf
	pdf.SetXY(x+1, y+1)
	d.bold(8)
	pdf.CellFormat(w-2, lineH, d.tr(label), "", 2, "L", false, 0, "")
	d.regular(8)

	if strings.TrimSpace(signature) == "" {
		pdf.CellFormat(w-2, lineH, signaturePlaceholder, "", 0, "L", false, 0, "")
		return
	}
	if img := d.image(asset); img != nil {
		iw, ih := fit(img.Width(), img.Height(), 21, 10.5)
		pdf.ImageOptions(asset, x+2, y+lineH+2, iw, ih, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		return
	}
	pdf.CellFormat(w-2, lineH, d.tr(signer+" (signed)"), "", 0, "L", false, 0, "")
}

func (d *document) review() {
	f := d.form
	if f.Status != model.FormStatusSubmitted && !f.Status.Reviewed() {
		return
	}

	pdf := d.pdf
	d.gap()
	width := d.contentWidth()
	d.ensureSpace(4 * (lineH + 2))

	d.bold(9)
	d.fillHeader()
	pdf.CellFormat(width, lineH+2, "Review Information", "1", 1, "L", true, 0, "")

	line := func(label, who string, at string) {
		d.bold(8)
		labelW := pdf.GetStringWidth(label) + 2
		pdf.CellFormat(labelW, lineH+2, label, "LB", 0, "L", false, 0, "")
		d.regular(8)
		text := who
		if at != "" {
			text += " on " + at
		}
		pdf.CellFormat(width-labelW, lineH+2, d.tr(text), "RB", 1, "L", false, 0, "")
	}

	if f.SubmittedBy != "" {
		at := ""
		if f.SubmittedAt != nil {
			at = f.SubmittedAt.Format(datetimeLayout)
		}
		line("Submitted by: ", f.SubmittedBy, at)
	}
	if f.ReviewedBy != "" {
		at := ""
		if f.ReviewedAt != nil {
			at = f.ReviewedAt.Format(datetimeLayout)
		}
		line("Reviewed by: ", f.ReviewedBy, at)
	}
	if f.Comments != "" {
		d.bold(8)
		pdf.CellFormat(width, lineH+1, "Comments:", "LR", 1, "L", false, 0, "")
		d.regular(8)
		pdf.MultiCell(width, lineH, d.tr(f.Comments), "LRB", "L", false)
	}
}
