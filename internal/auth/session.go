package auth

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/npezzotti/go-scoreboard/internal/credentials"
	"github.com/npezzotti/go-scoreboard/internal/types"
)

const (
	MinPasswordLength = 4

	adminSubject = "admin"
	jtiClaim     = "jti"
	subClaim     = "sub"
	iatClaim     = "iat"
)

// SessionManager authenticates the single shared admin role. Only one token
// is valid at a time: every successful login replaces the previous token,
// wherever it was issued.
type SessionManager struct {
	store      credentials.Store
	signingKey []byte
	now        func() time.Time
	// mu guards token and serializes password reads and writes against
	// token rotation.
	mu    sync.Mutex
	token string
}

func NewSessionManager(store credentials.Store, signingKey []byte) *SessionManager {
	return &SessionManager{
		store:      store,
		signingKey: signingKey,
		now:        time.Now,
	}
}

func (sm *SessionManager) Login(password string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.checkPasswordLocked(password); err != nil {
		return "", err
	}

	token, err := sm.newToken()
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	sm.token = token

	return token, nil
}

// ChangePassword stores a new admin password. The current token stays valid.
func (sm *SessionManager) ChangePassword(token, newPassword string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.authenticateLocked(token) {
		return fmt.Errorf("change password: %w", types.ErrUnauthorized)
	}

	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, types.ErrInvalidInput)
	}

	if err := sm.store.WritePassword(newPassword); err != nil {
		return fmt.Errorf("write password: %w", err)
	}

	return nil
}

// ConfirmPassword re-checks the admin password for an already authenticated
// caller before destructive operations.
func (sm *SessionManager) ConfirmPassword(token, password string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.authenticateLocked(token) {
		return fmt.Errorf("confirm password: %w", types.ErrUnauthorized)
	}

	return sm.checkPasswordLocked(password)
}

func (sm *SessionManager) Authenticate(token string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.authenticateLocked(token)
}

func (sm *SessionManager) authenticateLocked(token string) bool {
	if sm.token == "" || token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(sm.token)) == 1
}

func (sm *SessionManager) checkPasswordLocked(password string) error {
	current, err := sm.store.ReadPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(current)) != 1 {
		return fmt.Errorf("wrong password: %w", types.ErrUnauthorized)
	}

	return nil
}

// newToken signs a fresh random token. The claims only make the value opaque
// and unguessable; validity is decided by matching the current token.
func (sm *SessionManager) newToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		jtiClaim: uuid.NewString(),
		subClaim: adminSubject,
		iatClaim: sm.now().Unix(),
	})

	return token.SignedString(sm.signingKey)
}
