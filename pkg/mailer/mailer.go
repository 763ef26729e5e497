package mailer

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/pkg/config"
)

// Mailer sends transactional email. Implementations are best-effort: send
// methods report success with a bool and never propagate transport errors.
type Mailer interface {
	SendInvitation(ctx context.Context, email, firstName, lastName, role, tempPassword string) bool
	SendNotification(ctx context.Context, email, subject, message string) bool
}

// SESMailer delivers mail through Amazon SES v2. When no from-address is
// configured the mailer runs disabled and logs payloads instead of sending,
// which is the development mode.
type SESMailer struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// New builds a Mailer from configuration.
func New(ctx context.Context, cfg config.MailConfig, logger *zap.Logger) (*SESMailer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SESMailer{
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		logger:     logger,
	}

	if cfg.FromEmail == "" {
		logger.Info("mailer disabled, emails will be logged only")
		return m, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	m.client = sesv2.NewFromConfig(awsCfg)
	m.enabled = true
	logger.Sugar().Infow("mailer enabled", "from", cfg.FromEmail, "region", cfg.Region)
	return m, nil
}

// Enabled reports whether real delivery is configured.
func (m *SESMailer) Enabled() bool {
	return m.enabled
}

// SendInvitation emails the temporary credentials for a freshly invited
// account. Returns false on any delivery problem.
func (m *SESMailer) SendInvitation(ctx context.Context, email, firstName, lastName, role, tempPassword string) bool {
	subject := fmt.Sprintf("Invitation - Crèche WLW - %s", role)
	body := m.invitationBody(firstName, lastName, role, email, tempPassword)

	if !m.enabled {
		m.logger.Sugar().Infow("invitation email (dev mode)", "to", email, "subject", subject)
		return true
	}

	if err := m.send(ctx, email, subject, body); err != nil {
		m.logger.Sugar().Errorw("invitation email failed", "to", email, "error", err)
		return false
	}
	m.logger.Sugar().Infow("invitation email sent", "to", email)
	return true
}

// SendNotification emails a plain informational message.
func (m *SESMailer) SendNotification(ctx context.Context, email, subject, message string) bool {
	if !m.enabled {
		m.logger.Sugar().Infow("notification email (dev mode)", "to", email, "subject", subject)
		return true
	}

	body := fmt.Sprintf("<html><body><p>%s</p></body></html>", message)
	if err := m.send(ctx, email, subject, body); err != nil {
		m.logger.Sugar().Errorw("notification email failed", "to", email, "error", err)
		return false
	}
	return true
}

func (m *SESMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body:    &types.Body{Html: &types.Content{Data: &htmlBody}},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

func (m *SESMailer) invitationBody(firstName, lastName, role, email, tempPassword string) string {
	loginURL := fmt.Sprintf("%s/login", m.appBaseURL)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Bienvenue à la Crèche WLW</h2>
  <p>Bonjour <strong>%s %s</strong>,</p>
  <p>Vous avez été invité(e) en tant que <strong>%s</strong> sur la plateforme Crèche WLW.</p>
  <p>Identifiants de connexion :</p>
  <ul>
    <li>Email : %s</li>
    <li>Mot de passe temporaire : <code>%s</code></li>
  </ul>
  <p>Veuillez changer votre mot de passe lors de votre première connexion.</p>
  <p><a href="%s">Se connecter</a></p>
</body>
</html>`, firstName, lastName, role, email, tempPassword, loginURL)
}
