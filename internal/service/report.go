package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

// reportAlertRows alerts shown at the bottom of the report
const reportAlertRows = 10

// FleetReport 车队报表数据
type FleetReport struct {
	GeneratedAt     time.Time
	TotalVehicles   int
	EnRoute         int
	TotalAlerts     int
	CriticalAlerts  int
	TotalDistanceKm float64
	Vehicles        []ReportVehicle
	RecentAlerts    []ReportAlert
}

// ReportVehicle one row of the vehicle table
type ReportVehicle struct {
	Plate    string
	Name     string
	Odometer int
	Status   model.VehicleStatus
	Severity int
	Location *model.Location
}

// ReportAlert one row of the alert table
type ReportAlert struct {
	Plate     string
	Type      model.AlertType
	Message   string
	Severity  int
	Timestamp time.Time
}

// ReportService 报表服务
type ReportService struct {
	store    *repository.Store
	vehicles *VehicleService
	feed     *AlertFeed
	now      func() time.Time
	logger   *zap.Logger
}

// NewReportService 创建报表服务
func NewReportService(store *repository.Store, vehicles *VehicleService, feed *AlertFeed, now func() time.Time, logger *zap.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		store:    store,
		vehicles: vehicles,
		feed:     feed,
		now:      now,
		logger:   logger.Named("report"),
	}
}

// Build collects the report over the vehicles visible to p
func (s *ReportService) Build(ctx context.Context, p *model.Principal) (*FleetReport, error) {
	views := s.vehicles.List(ctx, p, model.VehicleListQuery{})
	r := &FleetReport{
		GeneratedAt:   s.now(),
		TotalVehicles: len(views),
		Vehicles:      make([]ReportVehicle, 0, len(views)),
	}

	plates := make(map[string]string, len(views))
	for _, v := range views {
		plates[v.ID] = v.Plate
		if v.Status == model.VehicleStatusEnRoute {
			r.EnRoute++
		}
		history, err := s.store.LocationHistory(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("history of %s: %w", v.ID, err)
		}
		r.TotalDistanceKm += PathDistance(history) / 1000
		r.Vehicles = append(r.Vehicles, ReportVehicle{
			Plate:    v.Plate,
			Name:     v.DisplayName(),
			Odometer: v.CurrentOdometer,
			Status:   v.Status,
			Severity: v.Summary.Severity,
			Location: v.Location,
		})
	}

	visible := func(id string) bool { _, ok := plates[id]; return ok }
	all := s.feed.List(model.AlertListQuery{}, visible)
	r.TotalAlerts = len(all)
	for i, a := range all {
		if a.Severity >= model.CriticalAlertSeverity {
			r.CriticalAlerts++
		}
		if i < reportAlertRows {
			r.RecentAlerts = append(r.RecentAlerts, ReportAlert{
				Plate:     plates[a.VehicleID],
				Type:      a.Type,
				Message:   a.Message,
				Severity:  a.Severity,
				Timestamp: a.Timestamp,
			})
		}
	}
	return r, nil
}

var reportTemplate = template.Must(template.New("fleet").Funcs(template.FuncMap{
	"coord": func(l *model.Location) string {
		if l == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.4f, %.4f", l.Lat, l.Lng)
	},
	"critical": func(sev int) bool { return sev >= model.CriticalAlertSeverity },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Fleet report</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background: #f5f5f5; }
.container { background: white; padding: 30px; border-radius: 8px; max-width: 900px; margin: 0 auto; }
h1 { color: #1f2937; border-bottom: 2px solid #3b82f6; padding-bottom: 10px; }
.summary { display: grid; grid-template-columns: repeat(4, 1fr); gap: 15px; margin: 20px 0; }
.stat { background: #f3f4f6; padding: 15px; border-radius: 6px; border-left: 4px solid #3b82f6; }
.stat-label { font-size: 12px; color: #6b7280; font-weight: bold; }
.stat-value { font-size: 24px; color: #1f2937; font-weight: bold; margin-top: 5px; }
table { width: 100%; border-collapse: collapse; margin-top: 20px; }
th { background: #3b82f6; color: white; padding: 10px; text-align: left; }
td { padding: 10px; border-bottom: 1px solid #e5e7eb; }
.critical { color: #dc2626; font-weight: bold; }
.footer { margin-top: 30px; padding-top: 15px; border-top: 1px solid #e5e7eb; color: #6b7280; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
<h1>Fleet management report</h1>
<p>Date: {{.GeneratedAt.Format "2006-01-02"}}</p>
<div class="summary">
<div class="stat"><div class="stat-label">Total vehicles</div><div class="stat-value">{{.TotalVehicles}}</div></div>
<div class="stat"><div class="stat-label">En route</div><div class="stat-value">{{.EnRoute}}</div></div>
<div class="stat"><div class="stat-label">Critical alerts</div><div class="stat-value critical">{{.CriticalAlerts}}</div></div>
<div class="stat"><div class="stat-label">Total distance</div><div class="stat-value">{{printf "%.1f" .TotalDistanceKm}} km</div></div>
</div>
<h2>Vehicles</h2>
<table>
<tr><th>Plate</th><th>Make/Model</th><th>Odometer</th><th>Status</th><th>Severity</th><th>Location</th></tr>
{{range .Vehicles}}<tr><td><strong>{{.Plate}}</strong></td><td>{{.Name}}</td><td>{{.Odometer}} km</td><td>{{.Status}}</td><td>{{.Severity}}</td><td>{{coord .Location}}</td></tr>
{{end}}</table>
<h2>Latest alerts</h2>
<table>
<tr><th>Vehicle</th><th>Type</th><th>Message</th><th>Severity</th><th>Time</th></tr>
{{range .RecentAlerts}}<tr><td><strong>{{.Plate}}</strong></td><td>{{.Type}}</td><td>{{.Message}}</td><td><span{{if critical .Severity}} class="critical"{{end}}>{{.Severity}}</span></td><td>{{.Timestamp.Format "15:04:05"}}</td></tr>
{{end}}</table>
<div class="footer"><p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p></div>
</div>
</body>
</html>
`))

// RenderHTML writes the report as a standalone HTML page
func (s *ReportService) RenderHTML(w io.Writer, r *FleetReport) error {
	return reportTemplate.Execute(w, r)
}

// RenderXLSX builds a workbook with a summary+vehicle sheet and an alert sheet
func (s *ReportService) RenderXLSX(r *FleetReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Vehicles"
	f.SetSheetName("Sheet1", sheet)

	summary := [][]interface{}{
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04")},
		{"Total vehicles", r.TotalVehicles},
		{"En route", r.EnRoute},
		{"Total alerts", r.TotalAlerts},
		{"Critical alerts", r.CriticalAlerts},
		{"Total distance (km)", r.TotalDistanceKm},
	}
	for i, row := range summary {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	headerRow := len(summary) + 2
	headers := []string{"Plate", "Make/Model", "Odometer (km)", "Status", "Severity", "Lat", "Lng"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheet, cell, h)
	}
	for i, v := range r.Vehicles {
		row := headerRow + 1 + i
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), v.Plate)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), v.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), v.Odometer)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), string(v.Status))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), v.Severity)
		if v.Location != nil {
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), v.Location.Lat)
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), v.Location.Lng)
		}
	}
	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "B", 22)

	alerts := "Alerts"
	if _, err := f.NewSheet(alerts); err != nil {
		return nil, fmt.Errorf("create alert sheet: %w", err)
	}
	for i, h := range []string{"Vehicle", "Type", "Message", "Severity", "Time"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(alerts, cell, h)
	}
	for i, a := range r.RecentAlerts {
		row := i + 2
		f.SetCellValue(alerts, fmt.Sprintf("A%d", row), a.Plate)
		f.SetCellValue(alerts, fmt.Sprintf("B%d", row), string(a.Type))
		f.SetCellValue(alerts, fmt.Sprintf("C%d", row), a.Message)
		f.SetCellValue(alerts, fmt.Sprintf("D%d", row), a.Severity)
		f.SetCellValue(alerts, fmt.Sprintf("E%d", row), a.Timestamp.Format("2006-01-02 15:04:05"))
	}
	f.SetColWidth(alerts, "C", "C", 60)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
