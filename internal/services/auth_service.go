package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	magicLinkTTL = time.Hour
	recoveryTTL  = 24 * time.Hour
	minPassword  = 8
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// AuthService is the identity provider: password and one-time-link
// sign-in, refresh rotation, invitations and recovery links.
type AuthService struct {
	config  *config.Config
	backend *database.Backend
	mailer  Mailer
	now     func() time.Time
}

func NewAuthService(cfg *config.Config, backend *database.Backend, mailer Mailer) *AuthService {
	return &AuthService{config: cfg, backend: backend, mailer: mailer, now: time.Now}
}

// JWT Claims. For refresh tokens the registered ID carries the session id.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

type Session struct {
	AccessToken  string           `json:"-"`
	RefreshToken string           `json:"-"`
	ExpiresAt    time.Time        `json:"expires_at"`
	User         *models.Identity `json:"user"`
}

// db is the handle for identity tables, which row-level security hides
// from the anon role.
func (s *AuthService) db(ctx context.Context) *gorm.DB {
	db := s.backend.Service()
	if db == nil {
		db = s.backend.Reader()
	}
	if db == nil {
		return nil
	}
	return db.WithContext(ctx)
}

// Configured is true when tokens can be signed and identities stored.
func (s *AuthService) Configured() bool {
	return s.config.JWTSecret != "" && s.backend.Configured()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword creates a bcrypt hash of the password
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func (s *AuthService) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *AuthService) signToken(user *models.Identity, kind TokenKind, ttl time.Duration, id string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.AppName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	return signed, expires, err
}

// ValidateToken validates a JWT of the given kind and returns the claims
func (s *AuthService) ValidateToken(tokenString string, kind TokenKind) (*Claims, error) {
	if s.config.JWTSecret == "" {
		return nil, ErrAuthUnavailable
	}
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Kind != kind {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateRandomToken generates a random token for invitations, sign-in
// links and recovery links
func (s *AuthService) GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// issueSession starts a new session for user, replacing any previous one
// so older refresh tokens stop working.
func (s *AuthService) issueSession(ctx context.Context, user *models.Identity) (*Session, error) {
	sessionID := uuid.NewString()
	now := s.now()

	err := s.db(ctx).Model(user).Updates(map[string]any{
		"session_id":      sessionID,
		"last_sign_in_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	user.SessionID = sessionID
	user.LastSignInAt = &now

	access, expires, err := s.signToken(user, AccessToken, s.config.AccessTokenTTL, uuid.NewString())
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.signToken(user, RefreshToken, s.config.RefreshTokenTTL, sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires, User: user}, nil
}

// SignInWithPassword authenticates an email and password.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if !s.Configured() {
		return nil, ErrAuthUnavailable
	}

	var user models.Identity
	if err := s.db(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" || !s.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, &user)
}

// SendMagicLink emails a one-time sign-in link. Unknown addresses succeed
// silently so the endpoint does not reveal who has an account.
func (s *AuthService) SendMagicLink(ctx context.Context, email string) error {
	if !s.Configured() {
		return ErrAuthUnavailable
	}

	var user models.Identity
	if err := s.db(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil
		}
		return err
	}

	token, err := s.GenerateRandomToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(magicLinkTTL)
	err = s.db(ctx).Model(&user).Updates(map[string]any{
		"one_time_token":   token,
		"one_time_expires": expires,
	}).Error
	if err != nil {
		return err
	}

	return s.mailer.SendMagicLink(user.Email, token)
}

// VerifyOneTimeToken exchanges a sign-in or recovery token for a session.
// Tokens are single use.
func (s *AuthService) VerifyOneTimeToken(ctx context.Context, token string) (*Session, error) {
	if !s.Configured() {
		return nil, ErrAuthUnavailable
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	for _, kind := range []struct{ tokenCol, expiresCol string }{
		{"one_time_token", "one_time_expires"},
		{"recovery_token", "recovery_expires"},
	} {
		var user models.Identity
		err := s.db(ctx).Where(kind.tokenCol+" = ?", token).First(&user).Error
		if database.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		expires := user.OneTimeExpires
		if kind.tokenCol == "recovery_token" {
			expires = user.RecoveryExpires
		}
		if expires == nil || s.now().After(*expires) {
			return nil, ErrInvalidToken
		}

		updates := map[string]any{kind.tokenCol: "", kind.expiresCol: nil}
		if user.EmailConfirmedAt == nil {
			updates["email_confirmed_at"] = s.now()
		}
		if err := s.db(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
		return s.issueSession(ctx, &user)
	}
	return nil, ErrInvalidToken
}

// Refresh rotates a session: the refresh token must belong to the user's
// current session, and a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if !s.Configured() {
		return nil, ErrAuthUnavailable
	}
	claims, err := s.ValidateToken(refreshToken, RefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.SessionID == "" || user.SessionID != claims.ID {
		return nil, ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

// SignOut ends the user's current session. Unknown users are ignored.
func (s *AuthService) SignOut(ctx context.Context, userID uuid.UUID) error {
	db := s.db(ctx)
	if db == nil || userID == uuid.Nil {
		return nil
	}
	return db.Model(&models.Identity{}).Where("id = ?", userID).Update("session_id", "").Error
}

// InviteUserByEmail creates an identity and emails an activation link.
// An existing identity yields ErrAlreadyRegistered.
func (s *AuthService) InviteUserByEmail(ctx context.Context, email, name string) (*models.Identity, error) {
	if !s.Configured() {
		return nil, ErrAuthUnavailable
	}
	email = normalizeEmail(email)

	var existing models.Identity
	err := s.db(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyRegistered
	}
	if !database.IsNotFound(err) {
		return nil, err
	}

	token, err := s.GenerateRandomToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.Identity{
		Email:       email,
		InviteToken: token,
		InvitedAt:   &now,
	}
	if err := s.db(ctx).Create(user).Error; err != nil {
		if database.IsConflict(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}

	if err := s.mailer.SendInvite(email, name, token); err != nil {
		logger.Op("auth.invite").WithError(err).Warn("invite email not sent")
	}
	return user, nil
}

// AcceptInvite sets the first password for an invited identity and signs
// it in. A pending profile is created if none exists yet.
func (s *AuthService) AcceptInvite(ctx context.Context, token, password string) (*Session, error) {
	if !s.Configured() {
		return nil, ErrAuthUnavailable
	}
	if token == "" {
		return nil, ErrInvalidToken
	}
	if len(password) < minPassword {
		return nil, ErrWeakPassword
	}

	var user models.Identity
	if err := s.db(ctx).Where("invite_token = ?", token).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(map[string]any{
			"password_hash":      hash,
			"invite_token":       "",
			"email_confirmed_at": now,
		}).Error; err != nil {
			return err
		}
		var profile models.Profile
		return tx.Where(models.Profile{ID: user.ID}).
			Attrs(models.Profile{Email: user.Email, Role: models.RoleMember, Status: models.ProfileStatusPending}).
			FirstOrCreate(&profile).Error
	})
	if err != nil {
		return nil, err
	}

	return s.issueSession(ctx, &user)
}

// GenerateRecoveryLink issues a 24 hour recovery token and returns the
// sign-in link that redeems it.
func (s *AuthService) GenerateRecoveryLink(ctx context.Context, email string) (string, error) {
	if !s.Configured() {
		return "", ErrAuthUnavailable
	}

	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := s.GenerateRandomToken()
	if err != nil {
		return "", err
	}
	err = s.db(ctx).Model(user).Updates(map[string]any{
		"recovery_token":   token,
		"recovery_expires": s.now().Add(recoveryTTL),
	}).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/api/auth/callback?token=%s&type=recovery", s.config.AppURL, token), nil
}

// UpdatePassword replaces the password for userID. It gives up when ctx
// is done and reports ErrPasswordTimeout on a deadline.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error {
	if !s.Configured() {
		return ErrAuthUnavailable
	}
	if len(password) < minPassword {
		return ErrWeakPassword
	}

	type hashed struct {
		hash string
		err  error
	}
	done := make(chan hashed, 1)
	go func() {
		h, err := s.HashPassword(password)
		done <- hashed{h, err}
	}()

	var h hashed
	select {
	case <-ctx.Done():
		return contextError(ctx.Err())
	case h = <-done:
	}
	if h.err != nil {
		return h.err
	}

	res := s.db(ctx).Model(&models.Identity{}).Where("id = ?", userID).Update("password_hash", h.hash)
	if res.Error != nil {
		if ctx.Err() != nil {
			return contextError(ctx.Err())
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrPasswordTimeout
	}
	return err
}

// FindUserByEmail looks an identity up by normalised email.
func (s *AuthService) FindUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	db := s.db(ctx)
	if db == nil {
		return nil, ErrAuthUnavailable
	}

	var user models.Identity
	if err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves an identity by id
func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	db := s.db(ctx)
	if db == nil {
		return nil, ErrAuthUnavailable
	}

	var user models.Identity
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
