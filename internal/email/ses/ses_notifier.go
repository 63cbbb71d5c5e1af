package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"invoiceflow/internal/config"
	"invoiceflow/internal/domain"
	"invoiceflow/internal/port"
)

// sendAPI is the subset of the SES v2 client used by the notifier.
type sendAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client      sendAPI
	fromAddress string
	fromName    string
	recipients  []string
}

// NewSESNotifier creates a ReportNotifier that emails a run summary to the
// configured recipients.
func NewSESNotifier(cfg *config.NotifyConfig) (port.ReportNotifier, error) {
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("ses notifier: no recipients configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return newSESNotifier(sesv2.NewFromConfig(awsCfg), cfg), nil
}

func newSESNotifier(client sendAPI, cfg *config.NotifyConfig) *sesNotifier {
	return &sesNotifier{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		recipients:  cfg.Recipients,
	}
}

func (s *sesNotifier) NotifyPipelineResult(ctx context.Context, result *domain.PipelineResult) error {
	subject := BuildSubject(result)
	textBody := BuildTextSummary(result)
	htmlBody := buildHTML(textBody)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

// BuildSubject renders the one-line subject for a run.
func BuildSubject(result *domain.PipelineResult) string {
	status := "no validation"
	if result.Validation != nil {
		status = string(result.Validation.Status)
	}
	return fmt.Sprintf("[invoiceflow] %s: %s", result.CorrelationID, status)
}

// BuildTextSummary renders the plain-text body shared by every notifier.
func BuildTextSummary(result *domain.PipelineResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correlation: %s\n", result.CorrelationID)
	fmt.Fprintf(&b, "Document type: %s\n", result.Extraction.Classification.DocumentType)
	fmt.Fprintf(&b, "Model: %s\n", result.Extraction.Model)
	if result.Validation != nil {
		fmt.Fprintf(&b, "Validation: %s (completeness %.0f%%)\n",
			result.Validation.Status, result.Validation.CompletenessScore*100)
		for _, issue := range result.Validation.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}
	if result.Confidence != nil {
		fmt.Fprintf(&b, "Confidence: %.2f (%s)\n", result.Confidence.Overall, result.Confidence.Grade)
	}
	if result.Aggregate != nil {
		fmt.Fprintf(&b, "Evaluators: %d succeeded, %d failed\n",
			result.Aggregate.SuccessCount, result.Aggregate.FailureCount)
		for _, o := range result.Aggregate.Outcomes {
			if o.Succeeded() {
				fmt.Fprintf(&b, "  - %s: ok (%dms)\n", o.EvaluatorName, o.ElapsedMs)
			} else {
				fmt.Fprintf(&b, "  - %s: %s %s\n", o.EvaluatorName, o.ErrorKind, o.Message)
			}
		}
	}
	fmt.Fprintf(&b, "Elapsed: %dms\n", result.TotalElapsedMs)
	return b.String()
}

func buildHTML(text string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Pipeline run summary</h2>
  <pre style="font-size: 13px; color: #333;">%s</pre>
</body>
</html>`, html.EscapeString(text))
}
