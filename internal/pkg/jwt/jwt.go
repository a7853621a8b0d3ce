package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrWrongKind    = errors.New("token kind not accepted here")
)

// Issuer is stamped into every token and required on parse
const Issuer = "itp-usermgmt"

// Kind tags what a token is allowed to do.
type Kind string

const (
	// KindSession proves a fully authenticated identity
	KindSession Kind = "session"
	// KindChallenge proves only that first-factor credentials were valid
	KindChallenge Kind = "challenge"
)

// Claims represents the JWT claims shared by both token kinds
type Claims struct {
	AccountID uint   `json:"account_id"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	Kind      Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single HMAC secret.
type Manager struct {
	secret       []byte
	sessionTTL   time.Duration
	challengeTTL time.Duration
	now          func() time.Time
}

// NewManager creates a token manager
func NewManager(secret string, sessionTTL, challengeTTL time.Duration) *Manager {
	return &Manager{
		secret:       []byte(secret),
		sessionTTL:   sessionTTL,
		challengeTTL: challengeTTL,
		now:          time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// SessionTTL returns the session token lifetime
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// IssueSession generates a session token carrying the role snapshot
func (m *Manager) IssueSession(accountID uint, username, role string) (string, *Claims, error) {
	claims := m.newClaims(accountID, KindSession, m.sessionTTL)
	claims.Username = username
	claims.Role = role
	return m.sign(claims)
}

// IssueChallenge generates a challenge token scoped to second-factor verification
func (m *Manager) IssueChallenge(accountID uint) (string, *Claims, error) {
	return m.sign(m.newClaims(accountID, KindChallenge, m.challengeTTL))
}

// ValidateSession accepts only session tokens
func (m *Manager) ValidateSession(tokenString string) (*Claims, error) {
	return m.validateKind(tokenString, KindSession)
}

// ValidateChallenge accepts only challenge tokens
func (m *Manager) ValidateChallenge(tokenString string) (*Claims, error) {
	return m.validateKind(tokenString, KindChallenge)
}

func (m *Manager) newClaims(accountID uint, kind Kind, ttl time.Duration) *Claims {
	now := m.now()
	return &Claims{
		AccountID: accountID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   strconv.FormatUint(uint64(accountID), 10),
		},
	}
}

func (m *Manager) sign(claims *Claims) (string, *Claims, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (m *Manager) validateKind(tokenString string, want Kind) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != want {
		return nil, ErrWrongKind
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
		// exp is inclusive: a token is still good during its final second
		jwt.WithLeeway(time.Second),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.AccountID == 0 {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// RemainingTTL returns how long the token stays valid from now, never negative
func (m *Manager) RemainingTTL(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(m.now())
	if d < 0 {
		return 0
	}
	return d
}
