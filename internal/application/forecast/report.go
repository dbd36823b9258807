package forecast

import (
	"context"
	"fmt"
)

// ReportUseCase exporta el reporte de runway a PDF.
type ReportUseCase struct {
	service   *Service
	generator RunwayReportGenerator
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(service *Service, generator RunwayReportGenerator) *ReportUseCase {
	return &ReportUseCase{service: service, generator: generator}
}

// DownloadRunwayPDF genera el PDF y su nombre de archivo con la fecha local.
func (uc *ReportUseCase) DownloadRunwayPDF(ctx context.Context) ([]byte, string, error) {
	report, err := uc.service.RunwayReport(ctx)
	if err != nil {
		return nil, "", err
	}
	cal := uc.service.Calendar()
	pdf, err := uc.generator.GenerateRunwayReportPDF(ctx, report, cal.Location().String())
	if err != nil {
		return nil, "", fmt.Errorf("forecast: generar pdf: %w", err)
	}
	filename := fmt.Sprintf("runway-%s.pdf", cal.FormatDate(report.GeneratedAt))
	return pdf, filename, nil
}
