package service

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

func TestPathDistance(t *testing.T) {
	samples := []model.PositionSample{
		{Location: model.Location{Lat: 40.0, Lng: -3.7}},
		{Location: model.Location{Lat: 40.1, Lng: -3.7}},
		{Location: model.Location{Lat: 40.2, Lng: -3.7}},
	}
	// 0.2 degrees of latitude is roughly 22.24 km
	got := PathDistance(samples) / 1000
	if math.Abs(got-22.24) > 0.05 {
		t.Errorf("distance = %.3f km", got)
	}
	if PathDistance(samples[:1]) != 0 {
		t.Error("single sample should have zero distance")
	}
}

func newReportFixture(t *testing.T) (*fleetFixture, *AlertFeed, *ReportService) {
	t.Helper()
	f := newFleetFixture(t)
	feed := NewAlertFeed(DefaultFeedCapacity, fixedClock, zap.NewNop())
	for _, v := range f.store.ListVehicles(context.Background()) {
		v := v
		feed.Add(f.evaluator.ConditionAlerts(&v, f.evaluator.Evaluate(&v))...)
	}
	return f, feed, NewReportService(f.store, f.vehicles, feed, fixedClock, zap.NewNop())
}

func TestReportBuild(t *testing.T) {
	f, _, reports := newReportFixture(t)
	ctx := context.Background()

	if err := f.store.SetLocation(ctx, "v_101", model.Location{Lat: 40.46, Lng: -3.70}); err != nil {
		t.Fatal(err)
	}

	r, err := reports.Build(ctx, adminP)
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalVehicles != 6 || r.EnRoute != 3 {
		t.Errorf("totals = %d vehicles, %d en route", r.TotalVehicles, r.EnRoute)
	}
	if r.TotalAlerts != 4 || r.CriticalAlerts != 2 {
		t.Errorf("alerts = %d total, %d critical", r.TotalAlerts, r.CriticalAlerts)
	}
	if r.TotalDistanceKm < 1 || r.TotalDistanceKm > 1.3 {
		t.Errorf("distance = %.3f km", r.TotalDistanceKm)
	}

	scoped, err := reports.Build(ctx, driverP)
	if err != nil {
		t.Fatal(err)
	}
	if scoped.TotalVehicles != 2 || scoped.TotalAlerts != 2 {
		t.Errorf("driver report = %d vehicles, %d alerts", scoped.TotalVehicles, scoped.TotalAlerts)
	}
}

func TestReportRenderHTML(t *testing.T) {
	_, _, reports := newReportFixture(t)
	r, err := reports.Build(context.Background(), adminP)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := reports.RenderHTML(&buf, r); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, want := range []string{"<!DOCTYPE html>", "9876-ABC", "1111-VLV", `class="critical"`, "U0100"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestReportRenderXLSX(t *testing.T) {
	_, _, reports := newReportFixture(t)
	r, err := reports.Build(context.Background(), adminP)
	if err != nil {
		t.Fatal(err)
	}

	data, err := reports.RenderXLSX(r)
	if err != nil {
		t.Fatal(err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Vehicles" || sheets[1] != "Alerts" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := wb.GetRows("Alerts")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1+len(r.RecentAlerts) {
		t.Errorf("alert rows = %d", len(rows))
	}
	total, _ := wb.GetCellValue("Vehicles", "B2")
	if total != "6" {
		t.Errorf("total vehicles cell = %q", total)
	}
}
