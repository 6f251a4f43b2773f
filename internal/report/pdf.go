package report

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"

	"github.com/vbonduro/applicheck/internal/domain"
)

const (
	pageMargin      = 15.0
	signatureWidth  = 80.0
	signatureHeight = 30.0
	qrSize          = 28.0
)

// RenderPDF lays out a signed report for printing: header with a QR code of
// the report id, one table per locker, the issue list and the signature.
func RenderPDF(rep *domain.Report) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("no report to render")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Inventory check - %s", rep.ApplianceName), true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	if rep.ID != "" {
		qrPNG, err := renderQRPNG(rep.ID, 400)
		if err != nil {
			return nil, fmt.Errorf("failed to render report code: %w", err)
		}
		opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("report-id", opt, bytes.NewReader(qrPNG))
		pdf.ImageOptions("report-id", pageW-pageMargin-qrSize, pageMargin, qrSize, qrSize, false, opt, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(contentW-qrSize, 10, tr(rep.ApplianceName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW-qrSize, 6, "Inventory check report", "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW-qrSize, 6, "Date: "+displayDate(rep.Date), "", 1, "L", false, 0, "")
	if rep.ID != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(contentW-qrSize, 5, "Report "+rep.ID, "", 1, "L", false, 0, "")
	}
	pdf.SetY(max(pdf.GetY(), pageMargin+qrSize) + 4)

	for _, locker := range rep.Lockers {
		writeLocker(pdf, tr, locker, contentW)
	}

	writeIssues(pdf, tr, rep.Issues(), contentW)
	writeSignOff(pdf, tr, rep, contentW)

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeLocker(pdf *gofpdf.Fpdf, tr func(string) string, locker domain.ReportLocker, contentW float64) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(contentW, 8, tr(locker.Name), "", 1, "L", true, 0, "")

	nameW := contentW * 0.45
	statusW := contentW * 0.15
	noteW := contentW - nameW - statusW

	for _, shelf := range locker.Shelves {
		if len(shelf.Items) == 0 {
			continue
		}
		if shelf.Name != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(contentW, 6, tr(shelf.Name), "", 1, "L", false, 0, "")
		}
		for _, item := range shelf.Items {
			pdf.SetFont("Helvetica", "", 10)
			row(pdf, tr, item.Name, item.Status, item.Note, nameW, statusW, noteW)
			for _, sub := range item.SubItems {
				pdf.SetFont("Helvetica", "", 9)
				row(pdf, tr, "    "+sub.Name, sub.Status, sub.Note, nameW, statusW, noteW)
			}
		}
	}
	pdf.Ln(4)
}

func row(pdf *gofpdf.Fpdf, tr func(string) string, name string, status domain.Status, note string, nameW, statusW, noteW float64) {
	pdf.CellFormat(nameW, 6, tr(name), "B", 0, "L", false, 0, "")
	r, g, b := statusColor(status)
	pdf.SetTextColor(r, g, b)
	pdf.CellFormat(statusW, 6, strings.ToUpper(string(status)), "B", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(noteW, 6, tr(note), "B", 1, "L", false, 0, "")
}

func writeIssues(pdf *gofpdf.Fpdf, tr func(string) string, issues []domain.ReportIssue, contentW float64) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 8, fmt.Sprintf("Issues (%d)", len(issues)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if len(issues) == 0 {
		pdf.CellFormat(contentW, 6, "No issues recorded.", "", 1, "L", false, 0, "")
	}
	for _, issue := range issues {
		name := issue.ItemName
		if issue.ContainerName != "" {
			name = issue.ContainerName + " / " + name
		}
		line := fmt.Sprintf("%s: %s - %s", issue.LockerName, name, issue.Status)
		if issue.Note != "" {
			line += " (" + issue.Note + ")"
		}
		pdf.MultiCell(contentW, 5, tr(line), "", "L", false)
	}
	pdf.Ln(6)
}

// writeSignOff draws the signature strokes scaled into a fixed box.
func writeSignOff(pdf *gofpdf.Fpdf, tr func(string) string, rep *domain.Report, contentW float64) {
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+signatureHeight+20 > pageH-pageMargin {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, "Signed off by: "+tr(rep.SignedName), "", 1, "L", false, 0, "")

	x0 := pageMargin
	y0 := pdf.GetY() + 2
	pdf.SetDrawColor(160, 160, 160)
	pdf.SetLineWidth(0.2)
	pdf.Rect(x0, y0, signatureWidth, signatureHeight, "D")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	for _, stroke := range rep.Signature.Strokes {
		for i := 1; i < len(stroke.Points); i++ {
			a, b := stroke.Points[i-1], stroke.Points[i]
			pdf.Line(x0+a.X*signatureWidth, y0+a.Y*signatureHeight, x0+b.X*signatureWidth, y0+b.Y*signatureHeight)
		}
		if len(stroke.Points) == 1 {
			p := stroke.Points[0]
			pdf.Circle(x0+p.X*signatureWidth, y0+p.Y*signatureHeight, 0.3, "F")
		}
	}
	pdf.SetY(y0 + signatureHeight + 2)
}

func statusColor(s domain.Status) (int, int, int) {
	switch s {
	case domain.StatusPresent:
		return 20, 120, 40
	case domain.StatusMissing:
		return 190, 20, 20
	case domain.StatusPartial, domain.StatusNote:
		return 200, 120, 0
	default:
		return 110, 110, 110
	}
}

func displayDate(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006 15:04 MST")
}

func renderQRPNG(value string, size int) ([]byte, error) {
	code, err := qr.Encode(value, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := png.Encode(&out, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
