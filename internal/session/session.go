package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoCredentials is returned when no credentials file exists.
var ErrNoCredentials = errors.New("no credentials; run 'agora login' first")

// Credentials is the on-disk shape of a login.
type Credentials struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Session holds the bearer credential and the identity it belongs to.
// It is safe for concurrent use; the token may be swapped by Watch.
type Session struct {
	mu    sync.RWMutex
	path  string
	creds Credentials
}

// New returns an in-memory session.
func New(creds Credentials) (*Session, error) {
	resolved, err := resolveIdentity(creds)
	if err != nil {
		return nil, err
	}
	return &Session{creds: resolved}, nil
}

// Load reads credentials from path.
func Load(path string) (*Session, error) {
	creds, err := readCredentials(path)
	if errors.Is(err, ErrNoCredentials) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	resolved, err := resolveIdentity(creds)
	if err != nil {
		return nil, err
	}
	return &Session{path: path, creds: resolved}, nil
}

// Save writes credentials to path.
func Save(path string, creds Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return fmt.Errorf("token cannot be empty")
	}
	return writeCredentials(path, creds)
}

// Token returns the current bearer credential.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// UserID returns the id of the signed-in user.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.UserID
}

// Name returns the display name of the signed-in user, if known.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.Name != "" {
		return s.creds.Name
	}
	return s.creds.UserID
}

// Path returns the credentials file backing this session, if any.
func (s *Session) Path() string {
	return s.path
}

func (s *Session) replace(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// resolveIdentity fills UserID from the token's subject claim when the file
// does not carry one. The token is not verified here; the backend does that.
func resolveIdentity(creds Credentials) (Credentials, error) {
	creds.Token = strings.TrimSpace(creds.Token)
	if creds.Token == "" {
		return creds, ErrNoCredentials
	}
	if creds.UserID != "" {
		return creds, nil
	}
	subject, err := tokenSubject(creds.Token)
	if err != nil {
		return creds, fmt.Errorf("credentials have no user_id and token subject is unreadable: %w", err)
	}
	creds.UserID = subject
	return creds, nil
}

func tokenSubject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		if id, ok := claims["user_id"].(string); ok {
			subject = id
		}
	}
	if subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}
