package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered export.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders admin exports of enrollments and attendance.
type ExportService struct {
	enrollments enrollmentRepository
	attendance  attendanceRepository
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments enrollmentRepository, attendance attendanceRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		attendance:  attendance,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Enrollments renders the enrollment list matching the filter.
func (s *ExportService) Enrollments(ctx context.Context, filter models.EnrollmentFilter, format ExportFormat) (*ExportResult, error) {
	filter.PageSize = 100
	if filter.Page < 1 {
		filter.Page = 1
	}
	enrollments, _, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	dataset := export.Dataset{
		Headers: []string{"id", "status", "submitted_at", "decided_at", "family_id", "child_id", "notes"},
	}
	for _, e := range enrollments {
		row := map[string]string{
			"id":           e.ID,
			"status":       string(e.Status),
			"submitted_at": e.SubmittedAt.Format(time.RFC3339),
		}
		if e.DecidedAt != nil {
			row["decided_at"] = e.DecidedAt.Format(time.RFC3339)
		}
		if e.FamilyID != nil {
			row["family_id"] = *e.FamilyID
		}
		if e.ChildID != nil {
			row["child_id"] = *e.ChildID
		}
		if e.Notes != nil {
			row["notes"] = *e.Notes
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return s.render(dataset, "Inscriptions", "enrollments", format)
}

// Attendance renders the attendance aggregate of a class over a period.
func (s *ExportService) Attendance(ctx context.Context, classID string, from, to time.Time, format ExportFormat) (*ExportResult, error) {
	summaries, err := s.attendance.Summarize(ctx, classID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	dataset := export.Dataset{
		Headers: []string{"date", "present", "absent", "late", "excused"},
	}
	for _, summary := range summaries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":    summary.Date.Format("2006-01-02"),
			"present": fmt.Sprintf("%d", summary.Present),
			"absent":  fmt.Sprintf("%d", summary.Absent),
			"late":    fmt.Sprintf("%d", summary.Late),
			"excused": fmt.Sprintf("%d", summary.Excused),
		})
	}

	return s.render(dataset, "Présences", "attendance", format)
}

func (s *ExportService) render(dataset export.Dataset, title, basename string, format ExportFormat) (*ExportResult, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv rendering failed")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.csv", basename, stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf rendering failed")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.pdf", basename, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}
