package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/invoicing"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/internal/domain/workflow"
	"github.com/garyjia/trip-finance/pkg/utils"
)

var reportContentTypes = map[port.ReportFormat]string{
	port.ReportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	port.ReportFormatPDF:  "application/pdf",
}

// GeneratedReport is a rendered trip report
type GeneratedReport struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	StoragePath string `json:"storage_path"`
	Content     []byte `json:"-"`
}

// ReportService renders financial reports for trips that reached reporting
type ReportService interface {
	Generate(ctx context.Context, actor entity.Actor, tripID string, format port.ReportFormat) (*GeneratedReport, error)
}

type reportServiceImpl struct {
	loader    tripLoader
	engine    *workflow.Engine
	renderers map[port.ReportFormat]port.ReportRenderer
	storage   port.FileStorage
	logger    Logger
	now       Clock
}

// NewReportService creates a new ReportService
func NewReportService(
	trips port.TripRepository,
	costs port.CostRepository,
	invoices port.InvoiceRepository,
	engine *workflow.Engine,
	storage port.FileStorage,
	logger Logger,
	renderers ...port.ReportRenderer,
) ReportService {
	byFormat := make(map[port.ReportFormat]port.ReportRenderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}
	return &reportServiceImpl{
		loader:    tripLoader{trips: trips, costs: costs, invoices: invoices},
		engine:    engine,
		renderers: byFormat,
		storage:   storage,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate renders and stores the report of a trip
func (s *reportServiceImpl) Generate(ctx context.Context, actor entity.Actor, tripID string, format port.ReportFormat) (*GeneratedReport, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, apperr.Invalid("format", apperr.KindInvalid, fmt.Sprintf("unsupported report format %q", format))
	}

	trip, inv, err := s.loader.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	wc, err := s.engine.Resume(registry.StepID(trip.WorkflowStep), workflow.Data{Trip: trip, Invoice: inv})
	if err != nil {
		return nil, err
	}
	if !s.engine.IsAtOrPast(wc, registry.StepReporting) {
		return nil, &apperr.GatingError{
			Step:      string(s.engine.CurrentStep(wc).ID),
			Condition: "workflow has not reached " + string(registry.StepReporting),
		}
	}

	now := s.now()
	report := &port.TripReport{Trip: trip, Invoice: inv}
	if inv != nil {
		aging := invoicing.TrackPayment(inv, now)
		report.Aging = &aging
	}

	content, err := renderer.Render(report)
	if err != nil {
		s.logger.Error("Failed to render report", "error", err, "trip_id", tripID, "format", format)
		return nil, fmt.Errorf("render report: %w", err)
	}

	name := fmt.Sprintf("trip-%s-%s.%s", utils.SafeName(trip.FleetNumber), now.Format("20060102-150405"), format)
	path := filepath.Join(trip.ID, name)
	if err := s.storage.Save(ctx, path, content); err != nil {
		s.logger.Error("Failed to store report", "error", err, "trip_id", tripID)
		return nil, fmt.Errorf("store report: %w", err)
	}

	s.logger.Info("Report generated", "trip_id", tripID, "format", format, "size", len(content), "by", actor.DisplayName())
	return &GeneratedReport{
		FileName:    name,
		ContentType: reportContentTypes[format],
		StoragePath: path,
		Content:     content,
	}, nil
}
