package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	derrors "github.com/NastyaGoryachaya/crypto-tracker/internal/errors"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/pkg/token"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -destination=mocks/mock_auth.go -package=mocks . CredentialStore,Mailer

// Причины, которые видит пользователь
const (
	ReasonInvalidEmail       = "invalid email address"
	ReasonWeakPassword       = "password is too short"
	ReasonPasswordTooLong    = "password is too long"
	ReasonEmailInUse         = "email already in use"
	ReasonInvalidCredentials = "invalid email or password"
	ReasonInvalidResetToken  = "reset link is invalid or expired"
	ReasonUnavailable        = "authentication service unavailable"
)

// CredentialStore - хранилище пользователей
type CredentialStore interface {
	Create(ctx context.Context, u domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdatePassword(ctx context.Context, userID, hash string) error
}

// Mailer - доставка ссылки для сброса пароля
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type Options struct {
	MinPasswordLen int
	BcryptCost     int
	ResetTokenTTL  time.Duration
}

// Service - провайдер идентификации: email + пароль
type Service struct {
	store    CredentialStore
	mailer   Mailer
	resets   *cache.Cache
	validate *validator.Validate
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	// dummyHash - с ним сравнивается пароль неизвестного email
	dummyHash []byte
	compare   func(hash, password []byte) error
}

func NewService(store CredentialStore, mailer Mailer, opts Options, logger *slog.Logger) *Service {
	if opts.MinPasswordLen <= 0 {
		opts.MinPasswordLen = 6
	}
	if opts.BcryptCost < bcrypt.MinCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), opts.BcryptCost)
	if err != nil {
		logger.Warn("dummy password hash failed", slog.Any("err", err))
	}
	return &Service{
		store:     store,
		mailer:    mailer,
		resets:    cache.New(opts.ResetTokenTTL, 2*opts.ResetTokenTTL),
		validate:  validator.New(),
		opts:      opts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
		compare:   bcrypt.CompareHashAndPassword,
	}
}

// NormalizeEmail - нижний регистр без пробелов по краям
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register - создаёт пользователя
func (s *Service) Register(ctx context.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return domain.User{}, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return domain.User{}, derrors.NewAuthError(ReasonEmailInUse, nil)
		}
		s.logger.Error("create user failed", slog.Any("err", err))
		return domain.User{}, derrors.NewAuthError(ReasonUnavailable, err)
	}
	s.logger.Info("user registered", slog.String("user_id", u.ID))
	return u, nil
}

// Login - проверяет пароль. Неизвестный email и неверный пароль неразличимы.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return domain.User{}, err
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// время ответа не должно выдавать, есть ли такой email
			_ = s.compare(s.dummyHash, []byte(password))
			return domain.User{}, derrors.NewAuthError(ReasonInvalidCredentials, nil)
		}
		s.logger.Error("get user failed", slog.Any("err", err))
		return domain.User{}, derrors.NewAuthError(ReasonUnavailable, err)
	}
	if err := s.compare([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, derrors.NewAuthError(ReasonInvalidCredentials, nil)
	}
	return u, nil
}

// RequestPasswordReset - выпускает одноразовый токен и отправляет его на почту.
// Для неизвестного email ничего не отправляется, но и ошибки нет.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("password reset for unknown email")
			return nil
		}
		return derrors.NewAuthError(ReasonUnavailable, err)
	}

	tok, err := token.New()
	if err != nil {
		return derrors.NewAuthError(ReasonUnavailable, err)
	}
	s.resets.Set(tok, u.ID, cache.DefaultExpiration)

	if err := s.mailer.SendPasswordReset(ctx, u.Email, tok); err != nil {
		s.resets.Delete(tok)
		s.logger.Error("send password reset failed", slog.Any("err", err))
		return derrors.NewAuthError(ReasonUnavailable, err)
	}
	return nil
}

// ResetPassword - меняет пароль по токену. Токен одноразовый.
// Возвращает id пользователя, чтобы вызывающий закрыл его сессии.
func (s *Service) ResetPassword(ctx context.Context, tok, newPassword string) (string, error) {
	v, ok := s.resets.Get(tok)
	if !ok {
		return "", derrors.NewAuthError(ReasonInvalidResetToken, nil)
	}
	userID, _ := v.(string)

	hash, err := s.hash(newPassword)
	if err != nil {
		// токен остаётся: пользователь может попробовать другой пароль
		return "", err
	}
	s.resets.Delete(tok)

	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", derrors.NewAuthError(ReasonInvalidResetToken, nil)
		}
		return "", derrors.NewAuthError(ReasonUnavailable, err)
	}
	s.logger.Info("password reset", slog.String("user_id", userID))
	return userID, nil
}

func (s *Service) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return derrors.NewAuthError(ReasonInvalidEmail, nil)
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < s.opts.MinPasswordLen {
		return "", derrors.NewAuthError(
			fmt.Sprintf("%s (minimum %d characters)", ReasonWeakPassword, s.opts.MinPasswordLen), nil)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", derrors.NewAuthError(ReasonPasswordTooLong, nil)
		}
		return "", derrors.NewAuthError(ReasonUnavailable, err)
	}
	return string(h), nil
}

// LogMailer - пишет ссылку сброса в лог вместо отправки письма
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, tok string) error {
	m.logger.Info("password reset token issued", slog.String("email", email), slog.String("token", tok))
	return nil
}
