package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"signage/internal/models"
)

// ReportData is everything printed on a company usage report.
type ReportData struct {
	Company     *models.Company
	Stats       *models.CompanyStats
	Users       []*models.User
	Devices     []*models.Device
	GeneratedAt time.Time
}

type Generator interface {
	CompanyReport(data ReportData) ([]byte, error)
}

// ReportGenerator renders reports with a UTF-8 TTF when FontPath is set and
// falls back to the built-in Helvetica otherwise.
type ReportGenerator struct {
	FontPath string
	AppName  string
	fontName string
}

func NewReportGenerator(fontPath, appName string) *ReportGenerator {
	g := &ReportGenerator{FontPath: fontPath, AppName: appName, fontName: "Helvetica"}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	return g
}

func (g *ReportGenerator) CompanyReport(data ReportData) ([]byte, error) {
	if data.Company == nil || data.Stats == nil {
		return nil, fmt.Errorf("report needs company and stats")
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s usage report", data.Company.Name), true)
	pdf.SetAuthor(g.AppName, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	if g.FontPath != "" {
		pdf.AddUTF8Font(g.fontName, "", g.FontPath)
		pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	}
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, data.Company.Name, "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, "Generated "+data.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Company")
	sub := "-"
	if data.Company.Subdomain != nil {
		sub = *data.Company.Subdomain
	}
	g.kvLine(pdf, "Subdomain", sub)
	g.kvLine(pdf, "Status", activeLabel(data.Company.IsActive))
	g.kvLine(pdf, "Created", data.Company.CreatedAt.Format("2006-01-02"))
	g.hr(pdf)

	g.sectionTitle(pdf, "Usage")
	u, d := data.Stats.Users, data.Stats.Devices
	g.kvLine(pdf, "Users", fmt.Sprintf("%d of %d (%d active, %d admins)", u.Total, u.MaxAllowed, u.Active, u.Admins))
	g.kvLine(pdf, "Devices", fmt.Sprintf("%d of %d (%d linked, %d online)", d.Total, d.MaxAllowed, d.Linked, d.Online))
	g.hr(pdf)

	if len(data.Users) > 0 {
		g.sectionTitle(pdf, "Users")
		g.table(pdf, []float64{70, 60, 20, 20}, []string{"Email", "Name", "Role", "Active"}, func(row func(...string)) {
			for _, x := range data.Users {
				row(x.Email, x.FullName, x.Role.String(), yesNo(x.IsActive))
			}
		})
		pdf.Ln(4)
	}

	if len(data.Devices) > 0 {
		g.sectionTitle(pdf, "Devices")
		g.table(pdf, []float64{60, 60, 25, 25}, []string{"Name", "Device ID", "Linked", "Online"}, func(row func(...string)) {
			for _, x := range data.Devices {
				row(x.DeviceName, x.DeviceUID, yesNo(x.IsLinked), yesNo(x.IsOnline))
			}
		})
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *ReportGenerator) table(pdf *gofpdf.Fpdf, widths []float64, header []string, rows func(row func(...string))) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(g.fontName, "", 9)
	rows(func(cells ...string) {
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	})
}

func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
