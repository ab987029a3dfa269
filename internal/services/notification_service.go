// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

// NotificationService sends transactional email. When SMTP is not
// configured it logs the message instead of failing, so development and
// CI never depend on a mail server.
type NotificationService struct {
	emailConfig config.EmailConfig
	frontendURL string
	templates   *template.Template
}

func NewNotificationService(emailConfig config.EmailConfig, frontendURL string) *NotificationService {
	return &NotificationService{
		emailConfig: emailConfig,
		frontendURL: frontendURL,
		templates:   template.Must(template.New("emails").Parse(emailTemplates)),
	}
}

func (s *NotificationService) SendWelcomeEmail(user *models.User, verificationCode string) {
	data := map[string]interface{}{
		"Name":            user.FullName(),
		"VerificationURL": fmt.Sprintf("%s/verify-email?email=%s&code=%s", s.frontendURL, user.Email, verificationCode),
	}
	s.send(user.Email, "Welcome to Ecobazar", "welcome", data)
}

func (s *NotificationService) SendPasswordResetEmail(user *models.User, token string) {
	data := map[string]interface{}{
		"Name":     user.FullName(),
		"ResetURL": fmt.Sprintf("%s/reset-password?email=%s&token=%s", s.frontendURL, user.Email, token),
	}
	s.send(user.Email, "Reset your Ecobazar password", "password_reset", data)
}

// SendOrderStatusEmail notifies the buyer after an order transition.
// The order must have its User preloaded or at least a UserID the
// caller resolved; when the user is absent the send is skipped.
func (s *NotificationService) SendOrderStatusEmail(order *models.Order) {
	if order.User.Email == "" {
		logrus.WithField("order_id", order.ID).Debug("Order has no user loaded, skipping status email")
		return
	}
	data := map[string]interface{}{
		"Name":     order.User.FullName(),
		"OrderID":  order.ID.String(),
		"Status":   string(order.Status),
		"OrderURL": fmt.Sprintf("%s/orders/%s", s.frontendURL, order.ID),
	}
	s.send(order.User.Email, fmt.Sprintf("Your order is %s", order.Status), "order_status", data)
}

func (s *NotificationService) SendReviewModeratedEmail(review *models.Review) {
	if review.User.Email == "" {
		logrus.WithField("review_id", review.ID).Debug("Review has no user loaded, skipping moderation email")
		return
	}
	data := map[string]interface{}{
		"Name":   review.User.FullName(),
		"Title":  review.Title,
		"Status": string(review.Status),
	}
	s.send(review.User.Email, "Your review has been moderated", "review_moderated", data)
}

func (s *NotificationService) send(to, subject, templateName string, data map[string]interface{}) {
	body, err := s.render(templateName, data)
	if err != nil {
		logrus.WithError(err).WithField("template", templateName).Error("Failed to render email template")
		return
	}

	if s.emailConfig.SMTPHost == "" {
		logrus.WithFields(logrus.Fields{
			"to":       to,
			"subject":  subject,
			"template": templateName,
		}).Info("SMTP not configured, logging email instead of sending")
		return
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.emailConfig.FromName, s.emailConfig.FromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body)

	addr := s.emailConfig.SMTPHost + ":" + s.emailConfig.SMTPPort
	auth := smtp.PlainAuth("", s.emailConfig.SMTPUsername, s.emailConfig.SMTPPassword, s.emailConfig.SMTPHost)
	if err := smtp.SendMail(addr, auth, s.emailConfig.FromEmail, []string{to}, msg.Bytes()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"to":       to,
			"template": templateName,
		}).Error("Failed to send email")
		return
	}

	logrus.WithFields(logrus.Fields{
		"to":       to,
		"template": templateName,
	}).Info("Email sent")
}

func (s *NotificationService) render(name string, data map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const emailTemplates = `
{{define "welcome"}}
<html><body>
<h2>Welcome to Ecobazar, {{.Name}}!</h2>
<p>Thanks for creating an account. Please confirm your email address:</p>
<p><a href="{{.VerificationURL}}">Verify my email</a></p>
<p>If you did not create this account, you can ignore this message.</p>
</body></html>
{{end}}

{{define "password_reset"}}
<html><body>
<h2>Password reset</h2>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. The link below is valid for one hour:</p>
<p><a href="{{.ResetURL}}">Reset my password</a></p>
<p>If you did not request this, no action is needed.</p>
</body></html>
{{end}}

{{define "order_status"}}
<html><body>
<h2>Order update</h2>
<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.OrderID}}</strong> is now <strong>{{.Status}}</strong>.</p>
<p><a href="{{.OrderURL}}">View order details</a></p>
</body></html>
{{end}}

{{define "review_moderated"}}
<html><body>
<h2>Review update</h2>
<p>Hi {{.Name}},</p>
<p>Your review &quot;{{.Title}}&quot; has been <strong>{{.Status}}</strong>.</p>
</body></html>
{{end}}
`
