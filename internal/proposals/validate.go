package proposals

import (
	"strings"

	"procurement/internal/apperr"
	"procurement/models"
)

const (
	maxNotesLength = 1000

	defaultAttachmentName = "attachment"
	defaultContentType    = "application/octet-stream"
)

// NormalizeAttachments fills missing attachment metadata with defaults.
func NormalizeAttachments(in []models.Attachment) []models.Attachment {
	out := make([]models.Attachment, 0, len(in))
	for _, a := range in {
		a.Filename = strings.TrimSpace(a.Filename)
		if a.Filename == "" {
			a.Filename = defaultAttachmentName
		}
		if strings.TrimSpace(a.ContentType) == "" {
			a.ContentType = defaultContentType
		}
		if a.Size < 0 {
			a.Size = 0
		}
		out = append(out, a)
	}
	return out
}

func normalizeAnalysis(a *models.AIAnalysis) models.AIAnalysis {
	if a == nil {
		return models.DefaultAIAnalysis()
	}
	out := *a
	if out.Strengths == nil {
		out.Strengths = []string{}
	}
	if out.Weaknesses == nil {
		out.Weaknesses = []string{}
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	if out.ComparisonData == nil {
		out.ComparisonData = models.Mixed{}
	}
	return out
}

// emailContent prefers the plain text body, then HTML.
func emailContent(text, html string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	if strings.TrimSpace(html) != "" {
		return html
	}
	return models.EmptyEmailContent
}

func validate(p *models.Proposal) error {
	var errs []string
	d := p.ExtractedData
	if d.TotalPrice < 0 {
		errs = append(errs, "Price cannot be negative")
	}
	if d.DeliveryDays < 0 {
		errs = append(errs, "Delivery days cannot be negative")
	}
	errs = append(errs, scoreErrors(d.ComplianceScore)...)
	errs = append(errs, scoreErrors(p.AIAnalysis.Score)...)
	if len([]rune(p.EvaluatorNotes)) > maxNotesLength {
		errs = append(errs, "Evaluator notes cannot exceed 1000 characters")
	}
	if len(errs) > 0 {
		return apperr.Invalid(errs)
	}
	return nil
}

func scoreErrors(score int) []string {
	switch {
	case score < 0:
		return []string{"Score cannot be negative"}
	case score > 100:
		return []string{"Score cannot exceed 100"}
	}
	return nil
}
