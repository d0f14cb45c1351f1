package reports

import "time"

// ReportResponse is the outward-facing representation of a report.
type ReportResponse struct {
	ReportID   string    `json:"reportId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	ReportType string    `json:"reportType"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploadedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toResponse(rep Report) ReportResponse {
	return ReportResponse{
		ReportID:   rep.ID,
		FileName:   rep.FileName,
		MimeType:   rep.MimeType,
		SizeBytes:  rep.SizeBytes,
		ReportType: rep.ReportType,
		Status:     string(rep.Status),
		UploadedAt: rep.CreatedAt,
		UpdatedAt:  rep.UpdatedAt,
	}
}
