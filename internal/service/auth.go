package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/nextup/internal/config"
	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/user"
	"github.com/Strob0t/nextup/internal/middleware"
	"github.com/Strob0t/nextup/internal/port/cache"
	"github.com/Strob0t/nextup/internal/port/database"
	"github.com/Strob0t/nextup/internal/resilience"
	"github.com/Strob0t/nextup/internal/secrets"
)

const (
	tokenAudience = "nextup"
	tokenIssuer   = "nextup-api"

	userCacheTTL = 10 * time.Minute
)

// Authentication failures reported to clients as 401 or 403.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrRegistrationClosed = errors.New("registration is disabled")
)

// AuthService handles accounts, passwords and JWT access tokens.
type AuthService struct {
	store  database.Store
	cfg    *config.Auth
	secret []byte
	vault  *secrets.Vault
	users  cache.LoadingCache
	hashes *resilience.Limiter
}

// NewAuthService creates a new authentication service. users caches
// profile lookups and may be nil.
func NewAuthService(store database.Store, cfg *config.Auth, users cache.LoadingCache) *AuthService {
	return &AuthService{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
		users:  users,
	}
}

// SetSecrets makes the service sign and verify tokens with the vault's
// JWT secret, so a reloaded secret takes effect immediately. Tokens signed
// with the previous secret stop validating.
func (s *AuthService) SetSecrets(v *secrets.Vault) {
	s.vault = v
}

// SetHashLimiter bounds concurrent bcrypt work so a burst of logins cannot
// starve request handling of CPU.
func (s *AuthService) SetHashLimiter(l *resilience.Limiter) {
	s.hashes = l
}

func (s *AuthService) hashPassword(ctx context.Context, password string) ([]byte, error) {
	var hash []byte
	err := s.hashes.Run(ctx, func() error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// checkPassword reports whether password matches hash. The error is
// non-nil only when no hashing slot could be acquired.
func (s *AuthService) checkPassword(ctx context.Context, hash, password string) (bool, error) {
	var ok bool
	err := s.hashes.Run(ctx, func() error {
		ok = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
		return nil
	})
	return ok, err
}

func (s *AuthService) signingKey() []byte {
	if s.vault != nil {
		if k := s.vault.Get(secrets.JWTSecretKey); k != "" {
			return []byte(k)
		}
	}
	return s.secret
}

// Register creates an account through the public sign-up endpoint.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if !s.cfg.AllowRegistration {
		return nil, ErrRegistrationClosed
	}
	return s.CreateUser(ctx, req)
}

// CreateUser creates an enabled user with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	hash, err := s.hashPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(req.Email),
		Name:         req.Name,
		PasswordHash: string(hash),
		Enabled:      true,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// EnsureLocalUser creates the fixed owner used when authentication is
// disabled, if it does not exist yet.
func (s *AuthService) EnsureLocalUser(ctx context.Context) error {
	local := middleware.LocalUser()
	_, err := s.store.GetUser(ctx, local.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get local user: %w", err)
	}
	local.PasswordHash = "!" // never matches a bcrypt hash
	if err := s.store.CreateUser(ctx, local); err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("create local user: %w", err)
	}
	slog.Info("created local user", "id", local.ID)
	return nil
}

// Login authenticates a user and returns an access token plus a raw
// refresh token for the cookie.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	ok, err := s.checkPassword(ctx, u.PasswordHash, req.Password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	if !u.Enabled {
		return nil, "", ErrAccountDisabled
	}

	rawToken, err := generateRandomToken(32)
	if err != nil {
		return nil, "", fmt.Errorf("generate refresh token: %w", err)
	}
	rt := &user.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: hashSHA256(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenExpiry),
	}
	if err := s.store.CreateRefreshToken(ctx, rt); err != nil {
		return nil, "", fmt.Errorf("store refresh token: %w", err)
	}

	resp, err := s.loginResponse(u)
	if err != nil {
		return nil, "", err
	}
	return resp, rawToken, nil
}

// RefreshTokens exchanges a refresh token for a new access token and a
// rotated refresh token. Each refresh token can be used once.
func (s *AuthService) RefreshTokens(ctx context.Context, rawToken string) (*user.LoginResponse, string, error) {
	if rawToken == "" {
		return nil, "", ErrInvalidToken
	}
	tokenHash := hashSHA256(rawToken)

	rt, err := s.store.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidToken
		}
		return nil, "", fmt.Errorf("get refresh token: %w", err)
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, "", ErrInvalidToken
	}

	u, err := s.store.GetUser(ctx, rt.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if !u.Enabled {
		return nil, "", ErrAccountDisabled
	}

	newRawToken, err := generateRandomToken(32)
	if err != nil {
		return nil, "", fmt.Errorf("generate refresh token: %w", err)
	}
	newRT := &user.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: hashSHA256(newRawToken),
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenExpiry),
	}
	if err := s.store.RotateRefreshToken(ctx, tokenHash, newRT); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Rotated concurrently by another request.
			return nil, "", ErrInvalidToken
		}
		return nil, "", fmt.Errorf("rotate refresh token: %w", err)
	}

	resp, err := s.loginResponse(u)
	if err != nil {
		return nil, "", err
	}
	return resp, newRawToken, nil
}

func (s *AuthService) loginResponse(u *user.User) (*user.LoginResponse, error) {
	accessToken, err := s.signJWT(u)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}
	return &user.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.AccessTokenExpiry.Seconds()),
		User:        *u,
	}, nil
}

// Logout deletes all refresh tokens of the user and revokes the current
// access token by JTI. Pass an empty jti to skip revocation.
func (s *AuthService) Logout(ctx context.Context, userID, jti string, tokenExpiry time.Time) error {
	if jti != "" {
		if err := s.store.RevokeToken(ctx, jti, tokenExpiry); err != nil {
			slog.WarnContext(ctx, "failed to revoke access token on logout", "jti", jti, "error", err)
		}
	}
	return s.store.DeleteRefreshTokensByUser(ctx, userID)
}

// ValidateAccessToken verifies a JWT and returns its claims. A token whose
// revocation status cannot be checked is rejected.
func (s *AuthService) ValidateAccessToken(ctx context.Context, tokenStr string) (*user.TokenClaims, error) {
	claims, err := s.verifyJWT(tokenStr)
	if err != nil {
		return nil, err
	}

	revoked, err := s.store.IsTokenRevoked(ctx, claims.JTI)
	if err != nil {
		slog.ErrorContext(ctx, "token revocation check failed, denying token", "jti", claims.JTI, "error", err)
		return nil, errors.New("unable to verify token status")
	}
	if revoked {
		return nil, errors.New("token has been revoked")
	}
	return claims, nil
}

// GetUser returns a user by ID through the profile cache.
func (s *AuthService) GetUser(ctx context.Context, id string) (*user.User, error) {
	if s.users == nil {
		return s.store.GetUser(ctx, id)
	}
	data, err := s.users.GetOrLoad(ctx, userCacheKey(id), userCacheTTL, func(ctx context.Context) ([]byte, error) {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(cachedUser{User: *u, PasswordHash: u.PasswordHash})
	})
	if err != nil {
		return nil, err
	}
	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	cu.User.PasswordHash = cu.PasswordHash
	return &cu.User, nil
}

// cachedUser carries the password hash, which user.User never serializes.
type cachedUser struct {
	user.User
	PasswordHash string `json:"password_hash"`
}

func userCacheKey(id string) string { return "user:" + id }

func (s *AuthService) invalidateUser(ctx context.Context, id string) {
	if s.users == nil {
		return
	}
	if err := s.users.Delete(ctx, userCacheKey(id)); err != nil {
		slog.WarnContext(ctx, "user cache invalidation failed", "user_id", id, "error", err)
	}
}

// ListUsers returns every account, oldest first.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// ChangePassword verifies the old password, stores the new one and signs
// the user out of every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req user.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	ok, err := s.checkPassword(ctx, u.PasswordHash, req.OldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, u, req.NewPassword)
}

// ResetPassword sets a new password without knowing the old one. It backs
// the admin command line.
func (s *AuthService) ResetPassword(ctx context.Context, email, password string) (*user.User, error) {
	if len(password) < user.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, user.MinPasswordLength)
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.setPassword(ctx, u, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) setPassword(ctx context.Context, u *user.User, password string) error {
	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.invalidateUser(ctx, u.ID)
	if err := s.store.DeleteRefreshTokensByUser(ctx, u.ID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}

// StartTokenCleanup purges expired revoked and refresh tokens every
// interval until ctx is cancelled.
func (s *AuthService) StartTokenCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.PurgeExpiredTokens(ctx)
				if err != nil {
					slog.Warn("failed to purge expired tokens", "error", err)
				} else if n > 0 {
					slog.Info("purged expired tokens", "count", n)
				}
			}
		}
	}()
}

// --- JWT (HS256) ---

// jwtHeader is the fixed base64url-encoded header for HS256.
var jwtHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *AuthService) signJWT(u *user.User) (string, error) {
	now := time.Now()
	claims := user.TokenClaims{
		UserID:   u.ID,
		Email:    u.Email,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(s.cfg.AccessTokenExpiry).Unix(),
		JTI:      uuid.NewString(),
		Audience: tokenAudience,
		Issuer:   tokenIssuer,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64URLEncode(payload)
	signingInput := jwtHeader + "." + payloadB64

	mac := hmac.New(sha256.New, s.signingKey())
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func (s *AuthService) verifyJWT(tokenStr string) (*user.TokenClaims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 || parts[0] != jwtHeader {
		return nil, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.signingKey())
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, ErrInvalidToken
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims user.TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if time.Now().Unix() > claims.Expiry {
		return nil, ErrInvalidToken
	}
	if claims.Audience != tokenAudience || claims.Issuer != tokenIssuer || claims.UserID == "" || claims.JTI == "" {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

// --- Helpers ---

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}

func hashSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
