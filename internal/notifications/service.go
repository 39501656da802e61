package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/brandpulse/brand-tracker/internal/config"
	"github.com/brandpulse/brand-tracker/internal/models"
)

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service sends reports and alerts to Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	mailer mailSender
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a notification service for the configured channels
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	if cfg.NotificationEmail != "" {
		s.mailer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return s
}

// SendReport sends a report via every configured channel
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	subject := fmt.Sprintf("Brand Tracking Report - %s (%d mentions)", report.Period, report.TotalMentions)
	return s.fanOut(
		func() error { return s.sendToTeams(ctx, s.buildReportCard(report)) },
		func() error {
			html, err := buildReportHTML(report)
			if err != nil {
				return fmt.Errorf("failed to build email HTML: %w", err)
			}
			return s.sendEmail(subject, report.Markdown, html)
		},
	)
}

// SendAlert sends an alert via every configured channel
func (s *Service) SendAlert(ctx context.Context, alert *models.Alert) error {
	logrus.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"type":     alert.Type,
	}).Warnf("Alert: %s", alert.Title)

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Type), alert.Title)
	return s.fanOut(
		func() error { return s.sendToTeams(ctx, buildAlertCard(alert)) },
		func() error { return s.sendEmail(subject, alert.Message, "") },
	)
}

func (s *Service) fanOut(teams, email func() error) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := teams(); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Sent Teams notification")
		}
	}

	if s.mailer != nil {
		if err := email(); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Sent email notification")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(subject, text, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	if html != "" {
		m.AddAlternative("text/html", html)
	}

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildReportCard(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Brand Tracking Report - %s", report.Period),
		Text:    fmt.Sprintf("%d mentions tracked", report.TotalMentions),
	}

	facts := []TeamsFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", report.TotalMentions)},
		{Name: "Generated", Value: report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	for _, category := range []string{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative} {
		if count, ok := report.Sentiment[category]; ok {
			facts = append(facts, TeamsFact{Name: capitalize(category) + " Mentions", Value: fmt.Sprintf("%d", count)})
		}
	}
	platforms := make([]string, 0, len(report.Platforms))
	for platform := range report.Platforms {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	for _, platform := range platforms {
		facts = append(facts, TeamsFact{Name: capitalize(platform), Value: fmt.Sprintf("%d", report.Platforms[platform])})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.Mentions) > 0 {
		limit := min(5, len(report.Mentions))
		lines := make([]string, 0, limit)
		for _, mention := range report.Mentions[:limit] {
			lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s (%s)",
				mentionHeadline(mention), mention.URL, mention.Platform, mention.Timestamp.Format("Jan 2")))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Recent Mentions",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func buildAlertCard(alert *models.Alert) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "d13438",
		Title:      alert.Title,
		Text:       alert.Message,
	}
	if m := alert.Mention; m != nil {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle:    mentionHeadline(*m),
			ActivitySubtitle: fmt.Sprintf("%s | %s", m.Platform, m.Timestamp.Format("Jan 2, 2006")),
			ActivityText:     truncate(m.Content, 300),
			Markdown:         true,
		})
	}
	return message
}

const reportTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Brand Tracking Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .mention { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-meta { color: #666; font-size: 0.9em; }
        .positive { border-left-color: #107c10; }
        .negative { border-left-color: #d13438; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Brand Tracking Report</h1>
        <p>{{.Period}} report generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Mentions:</strong> {{.TotalMentions}}</p>
        {{range $sentiment, $count := .Sentiment}}
            <p><strong>{{$sentiment | title}} Mentions:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .Mentions}}
    <h2>Recent Mentions</h2>
    {{range $index, $mention := .Mentions}}
        {{if lt $index 10}}
        <div class="mention {{$mention.BrandTracker.Sentiment.Category}}">
            <div class="mention-meta">
                {{$mention.Platform}} | {{$mention.Brand}} | {{$mention.Timestamp.Format "Jan 2, 2006"}}
                {{if $mention.URL}} | <a href="{{$mention.URL}}" target="_blank">link</a>{{end}}
            </div>
            <p>{{$mention.Content | truncate 200}}</p>
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the brand tracker.</small></p>
</body>
</html>
`

func buildReportHTML(report *models.Report) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"title": capitalize,
		"truncate": func(length int, s string) string {
			return truncate(s, length)
		},
	}).Parse(reportTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func mentionHeadline(m models.Mention) string {
	if m.Title != "" {
		return m.Title
	}
	return truncate(m.Content, 80)
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
