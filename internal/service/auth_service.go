package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/apperror"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = apperror.Unauthenticated("invalid email or password")

// Claims extends JWT standard claims with the principal's identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID  `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// cachedStatus is the per-user record kept in Redis between re-validations.
type cachedStatus struct {
	Status model.UserStatus `json:"status"`
	Role   model.Role       `json:"role"`
	Email  string           `json:"email"`
}

// AuthService issues and verifies principal tokens and re-validates the
// account behind a token on every request.
type AuthService struct {
	cfg   *config.Config
	users UserStore
	rdb   *redis.Client
	audit Recorder
	log   zerolog.Logger
}

// NewAuthService creates a new AuthService. A nil rdb disables status caching.
func NewAuthService(cfg *config.Config, users UserStore, rdb *redis.Client, audit Recorder, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:   cfg,
		users: users,
		rdb:   rdb,
		audit: audit,
		log:   log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return errInvalidCredentials
	}
	return nil
}

// Register creates a pending account. An HR Admin must approve it before login.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	role := model.Role(req.Role)
	if !role.Valid() {
		return nil, apperror.InvalidInput("unknown role %q", req.Role)
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal("hash password", err)
	}

	u := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		Status:       model.UserStatusPending,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("email is already registered")
		}
		return nil, apperror.Internal("create user", err)
	}

	s.audit.Record(ctx, entry(u.ID, model.ActionUserRegistered, nil, map[string]any{
		"email": u.Email,
		"role":  u.Role,
	}))
	return u, nil
}

// Login verifies credentials and returns a signed token for an approved account.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (string, *model.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, errInvalidCredentials
		}
		return "", nil, apperror.Internal("load user", err)
	}
	if err := s.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return "", nil, err
	}
	if u.Status != model.UserStatusApproved {
		return "", nil, apperror.Unauthenticated("account is %s", u.Status)
	}

	token, err := s.GenerateToken(u)
	if err != nil {
		return "", nil, apperror.Internal("sign token", err)
	}
	return token, u, nil
}

// GenerateToken creates an HS256 JWT carrying the user's identity.
func (s *AuthService) GenerateToken(u *model.User) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authenticate turns a bearer token into the principal it currently stands for.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (model.Principal, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return model.Principal{}, apperror.Unauthenticated("invalid or expired token")
	}
	return s.ResolvePrincipal(ctx, claims)
}

// ResolvePrincipal re-validates the account behind claims. Only approved
// accounts pass, and the returned role is the account's current role rather
// than the one baked into the token.
func (s *AuthService) ResolvePrincipal(ctx context.Context, claims *Claims) (model.Principal, error) {
	st, err := s.currentStatus(ctx, claims.UserID)
	if err != nil {
		return model.Principal{}, err
	}
	if st.Status != model.UserStatusApproved {
		return model.Principal{}, apperror.Unauthenticated("account is %s", st.Status)
	}

	p := model.Principal{UserID: claims.UserID, Email: st.Email, Role: st.Role}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// InvalidatePrincipal drops the cached status so the next request re-reads it.
func (s *AuthService) InvalidatePrincipal(ctx context.Context, userID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.UserStatusKey(userID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("invalidate status cache failed")
	}
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr("load user", "user", err)
	}
	return u, nil
}

func (s *AuthService) currentStatus(ctx context.Context, userID uuid.UUID) (*cachedStatus, error) {
	key := config.CacheKey.UserStatusKey(userID.String())

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var st cachedStatus
			if json.Unmarshal(raw, &st) == nil {
				return &st, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("status cache read failed, falling back to database")
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		return nil, apperror.Internal("load user status", err)
	}

	st := &cachedStatus{Status: u.Status, Role: u.Role, Email: u.Email}
	if s.rdb != nil {
		if raw, err := json.Marshal(st); err == nil {
			if err := s.rdb.Set(ctx, key, raw, s.cfg.UserStatusTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("status cache write failed")
			}
		}
	}
	return st, nil
}
