package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/models"
	sessionpkg "github.com/heliosensium/site/internal/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultFailureDelay = time.Second

// Service authenticates admins and manages their sessions.
type Service struct {
	db           *gorm.DB
	ttl          time.Duration
	failureDelay time.Duration
	cost         int
	logger       *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// Option customizes a Service.
type Option func(*Service)

// WithFailureDelay sets how long a failed login waits before answering.
func WithFailureDelay(d time.Duration) Option {
	return func(s *Service) { s.failureDelay = d }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(db *gorm.DB, cfg config.AuthConfig, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:           db,
		ttl:          cfg.SessionTTL,
		failureDelay: defaultFailureDelay,
		cost:         bcrypt.DefaultCost,
		logger:       logger.Named("AuthService"),
	}
	if s.ttl <= 0 {
		s.ttl = sessionpkg.DefaultTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL is the lifetime of issued tokens.
func (s *Service) SessionTTL() time.Duration { return s.ttl }

// Login checks credentials and issues a session-bound token. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password, ip, ua string) (*LoginResult, error) {
	username = strings.TrimSpace(username)

	var u models.UserModel
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Burn the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, s.fail(ctx, username, ip)
	case err != nil:
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, s.fail(ctx, username, ip)
	}

	issued, err := sessionpkg.Issue(s.db.WithContext(ctx), u.ID, ip, ua, s.ttl)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&u).UpdateColumns(map[string]any{
		"last_login_time": now,
		"last_login_ip":   ip,
	}).Error; err != nil {
		s.logger.Warn("record last login failed", zap.String("user", u.Username), zap.Error(err))
	}
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	s.logger.Info("admin logged in", zap.String("user", u.Username), zap.String("ip", ip))
	return &LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: &u}, nil
}

func (s *Service) fail(ctx context.Context, username, ip string) error {
	s.logger.Warn("login failed", zap.String("user", username), zap.String("ip", ip))
	if s.failureDelay > 0 {
		t := time.NewTimer(s.failureDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return ErrInvalidCredentials
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

// Validate resolves a token to its admin account.
func (s *Service) Validate(ctx context.Context, token string) (*models.UserModel, error) {
	claims, err := sessionpkg.Resolve(s.db.WithContext(ctx), token)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, claims.UserID)
}

// Logout revokes the session behind token. Invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	claims, err := sessionpkg.Resolve(s.db.WithContext(ctx), token)
	if err != nil {
		return
	}
	if err := sessionpkg.Revoke(s.db.WithContext(ctx), claims.UserID, claims.SessionID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("revoke session failed", zap.Error(err))
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) IsRegistered(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserModel{}).Count(&count).Error
	return count > 0, err
}

// Register creates the first admin account. It fails once any admin exists.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*models.UserModel, error) {
	registered, err := s.IsRegistered(ctx)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.cost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = dto.Username
	}
	u := &models.UserModel{
		Username: strings.TrimSpace(dto.Username),
		Name:     name,
		Email:    strings.TrimSpace(dto.Email),
		Password: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	s.logger.Info("admin registered", zap.String("user", u.Username))
	return u, nil
}

// Bootstrap creates the configured admin on first start. It is a no-op when
// no credentials are configured or an admin already exists.
func (s *Service) Bootstrap(ctx context.Context, cfg config.AuthConfig) (bool, error) {
	if cfg.BootstrapUser == "" || cfg.BootstrapPass == "" {
		return false, nil
	}
	_, err := s.Register(ctx, RegisterDTO{
		Username: cfg.BootstrapUser,
		Password: cfg.BootstrapPass,
		Email:    cfg.BootstrapEmail,
	})
	if errors.Is(err, ErrAlreadyRegistered) {
		return false, nil
	}
	return err == nil, err
}
