package blog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/modules/processing/markdown"
	"github.com/heliosensium/site/internal/pkg/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier is told about submissions and moderation decisions. Calls are
// made on their own goroutine after the change is committed.
type Notifier interface {
	BlogSubmitted(ctx context.Context, b models.BlogModel)
	BlogDecided(ctx context.Context, b models.BlogModel)
}

// Service implements blog submission and moderation.
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	validate *validator.Validate
	notifier Notifier
	onChange []func(ctx context.Context)
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier registers the submission/decision notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithChangeHook registers a callback run after any change to public content.
func WithChangeHook(fn func(ctx context.Context)) Option {
	return func(s *Service) { s.onChange = append(s.onChange, fn) }
}

func NewService(db *gorm.DB, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	s := &Service{
		db:       db,
		logger:   logger.Named("BlogService"),
		validate: v,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPublic returns one keyset page of approved blogs.
func (s *Service) ListPublic(ctx context.Context, q PublicListQuery) ([]models.BlogModel, pagination.CursorInfo, error) {
	if q.Status != "" && q.Status != string(models.BlogApproved) {
		return nil, pagination.CursorInfo{}, ErrNotPublic
	}

	column, keyOf, err := sortKey(q.Sort)
	if err != nil {
		return nil, pagination.CursorInfo{}, err
	}

	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultPublicLimit
	case limit > MaxPublicLimit:
		limit = MaxPublicLimit
	}

	query := s.db.WithContext(ctx).
		Where("status = ?", models.BlogApproved)
	if q.Cursor != "" {
		cur, err := pagination.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, pagination.CursorInfo{}, err
		}
		query = query.Where("("+column+" < ?) OR ("+column+" = ? AND id < ?)", cur.Key, cur.Key, cur.ID)
	}

	var rows []models.BlogModel
	err = query.Order(column + " DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error
	if err != nil {
		return nil, pagination.CursorInfo{}, err
	}

	page, info := pagination.KeysetPage(rows, limit, func(b models.BlogModel) pagination.Cursor {
		return pagination.Cursor{Key: keyOf(&b), ID: b.ID}
	})
	return page, info, nil
}

func sortKey(sort string) (string, func(*models.BlogModel) int64, error) {
	switch sort {
	case "", SortSubmissionDate:
		return "submitted_ms", func(b *models.BlogModel) int64 { return b.SubmittedMs }, nil
	case SortViews:
		return "views", func(b *models.BlogModel) int64 { return int64(b.Views) }, nil
	default:
		return "", nil, ErrInvalidSort
	}
}

// GetPublic loads an approved blog and counts the view.
func (s *Service) GetPublic(ctx context.Context, id string) (*models.BlogModel, error) {
	var b models.BlogModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.BlogApproved).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, err
	}

	// UpdateColumn keeps updated_at untouched; a read is not a modification.
	if err := s.db.WithContext(ctx).Model(&b).UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		s.logger.Warn("increment views failed", zap.String("id", id), zap.Error(err))
	} else {
		b.Views++
	}
	return &b, nil
}

// Submit validates and stores a new pending blog.
func (s *Service) Submit(ctx context.Context, dto SubmitDTO, ip string) (*models.BlogModel, error) {
	dto.Title = strings.TrimSpace(dto.Title)
	dto.Content = strings.TrimSpace(dto.Content)
	dto.AuthorName = strings.TrimSpace(dto.AuthorName)
	dto.AuthorEmail = strings.ToLower(strings.TrimSpace(dto.AuthorEmail))
	dto.Summary = trimOptional(dto.Summary)

	if err := s.validate.Struct(dto); err != nil {
		return nil, toValidationError(err)
	}

	content, ok := cleanContent(dto.Content)
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"content": "is required"}}
	}

	b := &models.BlogModel{
		Title:       dto.Title,
		Content:     content,
		Summary:     dto.Summary,
		AuthorName:  dto.AuthorName,
		AuthorEmail: dto.AuthorEmail,
		Status:      models.BlogPending,
		IPAddress:   strings.TrimSpace(ip),
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}

	s.logger.Info("blog submitted", zap.String("id", b.ID), zap.String("author", b.AuthorEmail))
	if s.notifier != nil {
		snapshot := *b
		go s.notifier.BlogSubmitted(context.WithoutCancel(ctx), snapshot)
	}
	return b, nil
}

// ListAdmin returns one offset page of blogs in the given status, newest first.
// An empty status means pending; anything other than the three statuses is
// ErrUnknownStatus.
func (s *Service) ListAdmin(ctx context.Context, status string, q pagination.Query) ([]models.BlogModel, pagination.PageInfo, error) {
	query := s.db.WithContext(ctx).Model(&models.BlogModel{})
	switch status {
	case "":
		query = query.Where("status = ?", models.BlogPending)
	default:
		st, ok := models.ParseBlogStatus(status)
		if !ok {
			return nil, pagination.PageInfo{}, ErrUnknownStatus
		}
		query = query.Where("status = ?", st)
	}

	var rows []models.BlogModel
	info, err := pagination.Paginate(query.Order("created_at DESC").Order("id DESC"), q, &rows)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return rows, info, nil
}

// Get loads a blog in any status.
func (s *Service) Get(ctx context.Context, id string) (*models.BlogModel, error) {
	var b models.BlogModel
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, err
	}
	return &b, nil
}

// UpdateStatus applies a moderation decision.
func (s *Service) UpdateStatus(ctx context.Context, id string, dto UpdateStatusDTO) (*models.BlogModel, error) {
	next, ok := models.ParseBlogStatus(dto.Status)
	if !ok || next == models.BlogPending {
		return nil, ErrInvalidStatus
	}

	var b models.BlogModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBlogNotFound
			}
			return err
		}
		if !b.Status.CanTransition(next) {
			return ErrStatusUnchanged
		}

		updates := map[string]any{"status": next}
		if next == models.BlogApproved {
			now := s.now()
			updates["approval_date"] = &now
		} else {
			updates["approval_date"] = nil
		}
		if dto.AdminNotes != nil {
			updates["admin_notes"] = trimOptional(dto.AdminNotes)
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&b, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("blog moderated", zap.String("id", b.ID), zap.String("status", string(b.Status)))
	s.changed(ctx)
	if s.notifier != nil {
		snapshot := b
		go s.notifier.BlogDecided(context.WithoutCancel(ctx), snapshot)
	}
	return &b, nil
}

// UpdateContent replaces a blog's content after sanitizing it.
func (s *Service) UpdateContent(ctx context.Context, id, content string) (*models.BlogModel, error) {
	cleaned, ok := cleanContent(strings.TrimSpace(content))
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"content": "is required"}}
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(b).Update("content", cleaned).Error; err != nil {
		return nil, err
	}
	b.Content = cleaned
	s.changed(ctx)
	return b, nil
}

// Delete removes a blog permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.BlogModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBlogNotFound
	}
	s.logger.Info("blog deleted", zap.String("id", id))
	s.changed(ctx)
	return nil
}

// Stats counts blogs per status; every status is present even when zero.
func (s *Service) Stats(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := s.db.WithContext(ctx).Model(&models.BlogModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.BlogStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	out := make([]StatusCount, 0, len(models.BlogStatuses))
	for _, st := range models.BlogStatuses {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out, nil
}

// RecentApproved returns the latest approved blogs by approval date.
func (s *Service) RecentApproved(ctx context.Context, limit int) ([]models.BlogModel, error) {
	var rows []models.BlogModel
	err := s.db.WithContext(ctx).
		Where("status = ?", models.BlogApproved).
		Order("approval_date DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ApprovedIndex lists id and modification time of every approved blog.
func (s *Service) ApprovedIndex(ctx context.Context) ([]models.BlogModel, error) {
	var rows []models.BlogModel
	err := s.db.WithContext(ctx).
		Select("id", "updated_at").
		Where("status = ?", models.BlogApproved).
		Order("submitted_ms DESC").
		Find(&rows).Error
	return rows, err
}

// PurgeRejected deletes rejected blogs last modified before cutoff.
func (s *Service) PurgeRejected(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.BlogRejected, cutoff).
		Delete(&models.BlogModel{})
	return res.RowsAffected, res.Error
}

func (s *Service) changed(ctx context.Context) {
	for _, fn := range s.onChange {
		fn(ctx)
	}
}

// cleanContent sanitizes HTML submissions. Markdown is stored as typed and
// sanitized when rendered. ok is false when nothing readable remains.
func cleanContent(content string) (string, bool) {
	if markdown.LooksLikeHTML(content) {
		content = strings.TrimSpace(markdown.Sanitize(content))
	}
	return content, markdown.PlainText(content) != ""
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
