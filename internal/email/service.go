package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"flatup/internal/logger"
	"flatup/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "emails"
	failedKey  = "emails:failed"
	maxTries   = 3
	retryDelay = 5 * time.Second

	popTimeout    = 2 * time.Second
	errorBackoff  = 5 * time.Second
	gaugeInterval = 30 * time.Second
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Options struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	AppURL   string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	redis      *redis.Client
	opts       Options
	send       sendFunc
	retryDelay time.Duration

	errorBackoff  time.Duration
	gaugeInterval time.Duration
}

func New(rdb *redis.Client, opts Options) *Service {
	return &Service{
		redis:      rdb,
		opts:       opts,
		send:       smtp.SendMail,
		retryDelay: retryDelay,

		errorBackoff:  errorBackoff,
		gaugeInterval: gaugeInterval,
	}
}

func (s *Service) Send(ctx context.Context, emailType, to, name, subject, body string) error {
	job := EmailJob{
		Type:    emailType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Error("failed to queue email", "type", emailType, "to", to, "error", err)
		return fmt.Errorf("queue email: %w", err)
	}

	logger.Info("email queued", "type", emailType, "to", to)
	return nil
}

// Start drains the queue until ctx is cancelled. The queue length gauge is
// refreshed on start and every gaugeInterval; a failing Redis is retried
// after errorBackoff.
func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	ticker := time.NewTicker(s.gaugeInterval)
	defer ticker.Stop()
	s.QueueLength(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		case <-ticker.C:
			s.QueueLength(ctx)
		default:
		}

		if err := s.processNext(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("email queue unavailable", "backoff", s.errorBackoff)
			select {
			case <-ctx.Done():
			case <-time.After(s.errorBackoff):
			}
		}
	}
}

// processNext handles at most one job. Only queue errors are returned; an
// empty queue or a failed delivery is not an error.
func (s *Service) processNext(ctx context.Context) error {
	result, err := s.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pop email job: %w", err)
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.WithError(err).Error("bad email job")
		return nil
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Error("failed to send email", "type", job.Type, "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			s.requeue(ctx, job)
		} else {
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return nil
	}

	metrics.RecordEmail(job.Type, "success")
	logger.Info("email sent", "type", job.Type, "to", job.To)
	return nil
}

func (s *Service) requeue(ctx context.Context, job EmailJob) {
	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}

	data, _ := json.Marshal(job)
	if err := s.redis.LPush(context.Background(), queueKey, data).Err(); err != nil {
		logger.Error("failed to requeue email", "to", job.To, "error", err)
	}
}

func (s *Service) sendNow(job EmailJob) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.opts.FromName, s.opts.From)
	fmt.Fprintf(&msg, "To: %s\r\n", job.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", job.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n" + job.Body)

	var auth smtp.Auth
	if s.opts.SMTPUser != "" && s.opts.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.opts.SMTPUser, s.opts.SMTPPass, s.opts.SMTPHost)
	}

	addr := s.opts.SMTPHost + ":" + s.opts.SMTPPort
	return s.send(addr, auth, s.opts.From, []string{job.To}, []byte(msg.String()))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.WithFields(map[string]interface{}{
		"type":  job.Type,
		"to":    job.To,
		"tries": job.Tries,
	}).Error("email moved to failed queue")
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, err := s.redis.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0
	}
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #2563eb;">Welcome to FlatUp!</h1>
  <p>Hi {{.Name}},</p>
  <p>Thank you for joining FlatUp, the platform for flat listings and rentals.</p>
  <p>You can now browse listings, connect with owners and brokers, and list your own properties with a subscription.</p>
  <a href="{{.AppURL}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Explore FlatUp</a>
  <p>Best regards,<br>The FlatUp Team</p>
</div>`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #16a34a;">Subscription Confirmed!</h1>
  <p>Hi {{.Name}},</p>
  <p>Your subscription has been successfully activated!</p>
  <div style="background-color: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3>Subscription Details:</h3>
    <p><strong>Plan:</strong> {{.Plan}}</p>
    <p><strong>Amount:</strong> &#8377;{{.Amount}}</p>
    <p><strong>Duration:</strong> 1 Month</p>
  </div>
  <p>You can now start listing your properties and reach thousands of potential tenants!</p>
  <a href="{{.AppURL}}/dashboard" style="background-color: #16a34a; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Go to Dashboard</a>
  <p>Best regards,<br>The FlatUp Team</p>
</div>`))

func render(t *template.Template, data interface{}) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return b.String(), nil
}

// FormatRupees renders an amount in paise as rupees, dropping a zero fraction.
func FormatRupees(paise int64) string {
	if paise%100 == 0 {
		return fmt.Sprintf("%d", paise/100)
	}
	return fmt.Sprintf("%d.%02d", paise/100, paise%100)
}

func (s *Service) SendWelcome(ctx context.Context, to, name string) error {
	body, err := render(welcomeTmpl, map[string]string{
		"Name":   name,
		"AppURL": s.opts.AppURL,
	})
	if err != nil {
		return err
	}
	return s.Send(ctx, "welcome", to, name, "Welcome to FlatUp!", body)
}

func (s *Service) SendSubscriptionConfirmation(ctx context.Context, to, name, planName string, amountPaise int64) error {
	body, err := render(confirmationTmpl, map[string]string{
		"Name":   name,
		"Plan":   planName,
		"Amount": FormatRupees(amountPaise),
		"AppURL": s.opts.AppURL,
	})
	if err != nil {
		return err
	}
	return s.Send(ctx, "subscription_confirmation", to, name, "Subscription Confirmed - FlatUp", body)
}
