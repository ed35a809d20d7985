// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"college-predictor/internal/models"
	"college-predictor/internal/utils"
)

// ErrNoSender is returned when no sender address is configured.
var ErrNoSender = errors.New("ses sender email not configured")

// EmailAPI is the subset of the SES client used by Service.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    EmailAPI
	fromEmail string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// ShortlistParams contains data for a shortlist email
type ShortlistParams struct {
	To           string
	Exam         string
	Rank         int
	Category     string
	Predictions  []models.Prediction
	DashboardURL string
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

// NewService creates a new SES service
func NewService(ctx context.Context, region, fromEmail string) (*Service, error) {
	if fromEmail == "" {
		return nil, ErrNoSender
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Service{client: ses.NewFromConfig(cfg), fromEmail: fromEmail}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client EmailAPI, fromEmail string) *Service {
	return &Service{client: client, fromEmail: fromEmail}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.GetLogger().Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// SendShortlist emails a rendered prediction shortlist.
func (s *Service) SendShortlist(ctx context.Context, params ShortlistParams) (*SendEmailResult, error) {
	htmlBody, err := RenderShortlistHTML(params)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Your %s college shortlist for rank %d (%d options)",
		params.Exam, params.Rank, len(params.Predictions))

	return s.SendEmail(ctx, EmailParams{
		To:       params.To,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: RenderShortlistText(params),
	})
}

var shortlistTemplate = template.Must(template.New("shortlist").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"pct": func(f float64) float64 { return f * 100 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, sans-serif; line-height: 1.5; color: #333; max-width: 680px; margin: 0 auto; padding: 20px; }
        .header { background: #34495e; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; font-size: 14px; }
        .High { color: #1e8449; font-weight: bold; }
        .Medium { color: #b9770e; font-weight: bold; }
        .Low { color: #922b21; }
        .footer { text-align: center; margin-top: 24px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.Exam}} shortlist</h2>
        <p>Rank {{.Rank}}{{if .Category}}, {{.Category}}{{end}}: {{len .Predictions}} options</p>
    </div>
    <table>
        <tr><th>#</th><th>Institution</th><th>Program</th><th>Closing rank</th><th>Chance</th></tr>
        {{range $i, $p := .Predictions}}
        <tr>
            <td>{{inc $i}}</td>
            <td>{{$p.Institution}}{{if $p.Location}}<br><small>{{$p.Location}}</small>{{end}}</td>
            <td>{{$p.Program}}</td>
            <td>{{$p.ClosingRank}}</td>
            <td class="{{$p.ConfidenceLevel}}">{{$p.ConfidenceLevel}} ({{printf "%.0f" (pct $p.ConfidenceScore)}}%)</td>
        </tr>
        {{end}}
    </table>
    {{if .DashboardURL}}<p><a href="{{.DashboardURL}}">Open the predictor</a></p>{{end}}
    <div class="footer">Predictions are based on previous years' cutoffs and are not a guarantee of admission.</div>
</body>
</html>`))

// RenderShortlistHTML renders the HTML body of a shortlist email.
func RenderShortlistHTML(params ShortlistParams) (string, error) {
	var buf bytes.Buffer
	if err := shortlistTemplate.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderShortlistText renders the plain text body of a shortlist email.
func RenderShortlistText(params ShortlistParams) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s shortlist for rank %d", params.Exam, params.Rank)
	if params.Category != "" {
		fmt.Fprintf(&buf, " (%s)", params.Category)
	}
	buf.WriteString("\n\n")

	for i, p := range params.Predictions {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, p.Institution, p.Program)
		fmt.Fprintf(&buf, "   Closing rank: %d, chance: %s (%.0f%%)\n", p.ClosingRank, p.ConfidenceLevel, p.ConfidenceScore*100)
	}

	if params.DashboardURL != "" {
		fmt.Fprintf(&buf, "\nOpen the predictor: %s\n", params.DashboardURL)
	}
	buf.WriteString("\nPredictions are based on previous years' cutoffs and are not a guarantee of admission.\n")
	return buf.String()
}
