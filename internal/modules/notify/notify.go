// Package notify tells moderators about new submissions and authors about
// moderation decisions. Mail is optional when a pusher is configured.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/modules/processing/markdown"
	pkgmail "github.com/heliosensium/site/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sendTimeout = 30 * time.Second

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg pkgmail.Message) error
}

// Pusher delivers a short mobile push notification.
type Pusher interface {
	Push(ctx context.Context, title, body, link string) error
}

// Service orchestrates moderation emails and pushes.
type Service struct {
	db         *gorm.DB
	mailer     Mailer
	pusher     Pusher
	site       config.SiteConfig
	moderation config.ModerationConfig
	logger     *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithPusher also pushes new submissions to a moderator's phone.
func WithPusher(p Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

func New(db *gorm.DB, mailer Mailer, site config.SiteConfig, moderation config.ModerationConfig, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:         db,
		mailer:     mailer,
		site:       site,
		moderation: moderation,
		logger:     logger.Named("NotifyService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type submittedData struct {
	SiteName  string
	Title     string
	Author    string
	Email     string
	Excerpt   string
	ReviewURL string
	Year      int
}

type decidedData struct {
	SiteName string
	Title    string
	Author   string
	Approved bool
	Notes    string
	PostURL  string
	Year     int
}

// BlogSubmitted tells moderators a new post is waiting for review.
func (s *Service) BlogSubmitted(ctx context.Context, b models.BlogModel) {
	reviewURL := fmt.Sprintf("%s/%s/blog/%s", s.site.URL, s.site.AdminPath, b.ID)
	if s.pusher != nil {
		if err := s.pusher.Push(ctx, "New blog submission", b.Title+" by "+b.AuthorName, reviewURL); err != nil {
			s.logger.Warn("push submission failed", zap.Error(err))
		}
	}

	if s.mailer == nil {
		return
	}
	to := s.moderatorEmails(ctx)
	if len(to) == 0 {
		return
	}

	html, err := render(submittedTpl, submittedData{
		SiteName:  s.site.Name,
		Title:     b.Title,
		Author:    b.AuthorName,
		Email:     b.AuthorEmail,
		Excerpt:   markdown.Excerpt(b.Content, 280),
		ReviewURL: reviewURL,
		Year:      time.Now().Year(),
	})
	if err != nil {
		s.logger.Error("render submission mail", zap.Error(err))
		return
	}
	s.send(ctx, pkgmail.Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] New blog submission: %s", s.site.Name, b.Title),
		HTML:    html,
	})
}

// BlogDecided tells the author whether their post was approved or rejected.
func (s *Service) BlogDecided(ctx context.Context, b models.BlogModel) {
	if s.mailer == nil || !s.moderation.NotifyAuthorOnDecision || strings.TrimSpace(b.AuthorEmail) == "" {
		return
	}

	data := decidedData{
		SiteName: s.site.Name,
		Title:    b.Title,
		Author:   b.AuthorName,
		Approved: b.Status == models.BlogApproved,
		PostURL:  fmt.Sprintf("%s/blog/%s", s.site.URL, b.ID),
		Year:     time.Now().Year(),
	}
	if b.AdminNotes != nil {
		data.Notes = *b.AdminNotes
	}
	html, err := render(decidedTpl, data)
	if err != nil {
		s.logger.Error("render decision mail", zap.Error(err))
		return
	}

	verdict := "was not accepted"
	if data.Approved {
		verdict = "is live"
	}
	s.send(ctx, pkgmail.Message{
		To:      []string{b.AuthorEmail},
		Subject: fmt.Sprintf("[%s] Your post \"%s\" %s", s.site.Name, b.Title, verdict),
		HTML:    html,
	})
}

// moderatorEmails returns the configured recipients, falling back to the
// addresses of all admin accounts.
func (s *Service) moderatorEmails(ctx context.Context) []string {
	if len(s.moderation.NotifyEmails) > 0 {
		return s.moderation.NotifyEmails
	}
	if s.db == nil {
		return nil
	}
	var emails []string
	err := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("email <> ''").
		Order("created_at ASC").
		Pluck("email", &emails).Error
	if err != nil {
		s.logger.Warn("load admin emails", zap.Error(err))
		return nil
	}
	return emails
}

func (s *Service) send(ctx context.Context, msg pkgmail.Message) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("send mail failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func render(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
