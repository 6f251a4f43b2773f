package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/report"
)

type reportRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.ReportHeader, error)
	ListByAppliance(ctx context.Context, applianceID string) ([]*domain.ReportHeader, error)
}

type ReportService struct {
	reports    reportRepository
	appliances applianceReader
	authz      Authorizer
	logger     *slog.Logger
}

func NewReportService(reports reportRepository, appliances applianceReader, authz Authorizer, logger *slog.Logger) *ReportService {
	return &ReportService{reports: reports, appliances: appliances, authz: authz, logger: logger}
}

// List returns the organisation's reports, or only one appliance's when
// applianceID is set. Newest first.
func (s *ReportService) List(ctx context.Context, id Identity, applianceID string) ([]*domain.ReportHeader, error) {
	if err := s.authz.Authorize(ctx, id, ActionViewReports); err != nil {
		return nil, err
	}
	if applianceID == "" {
		return s.reports.ListByOrg(ctx, id.OrgID)
	}
	if _, err := loadAppliance(ctx, s.appliances, id, applianceID); err != nil {
		return nil, err
	}
	return s.reports.ListByAppliance(ctx, applianceID)
}

func (s *ReportService) Get(ctx context.Context, id Identity, reportID string) (*domain.Report, error) {
	if err := s.authz.Authorize(ctx, id, ActionViewReports); err != nil {
		return nil, err
	}
	r, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if r == nil || r.OrgID != id.OrgID {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	return r, nil
}

// PDF renders a stored report for printing.
func (s *ReportService) PDF(ctx context.Context, id Identity, reportID string) (*domain.Report, []byte, error) {
	r, err := s.Get(ctx, id, reportID)
	if err != nil {
		return nil, nil, err
	}
	data, err := report.RenderPDF(r)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("report rendered", "report_id", reportID, "bytes", len(data))
	return r, data, nil
}
