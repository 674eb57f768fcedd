package auth

import (
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrDecode is returned when a credential is missing or cannot be decoded.
var ErrDecode = errors.New("auth: credential cannot be decoded")

// Verifier turns a raw bearer credential into its claims. Implementations decide how much
// of the token is trusted; the resolver only reads the subject and group claims.
type Verifier interface {
	Verify(token string) (jwt.MapClaims, error)
}

// UnverifiedDecoder reads claims without checking the signature. Use it only behind a gateway
// that has already validated the token.
type UnverifiedDecoder struct {
	parser *jwt.Parser
}

// NewUnverifiedDecoder constructs a decoder trusting upstream verification.
func NewUnverifiedDecoder() *UnverifiedDecoder {
	return &UnverifiedDecoder{parser: jwt.NewParser()}
}

// Verify decodes the token payload.
func (d *UnverifiedDecoder) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return claims, nil
}

// HMACVerifier validates HS256 signatures and registered time claims.
type HMACVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewHMACVerifier builds a verifier for tokens signed with secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify checks the signature and returns the claims.
func (v *HMACVerifier) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrDecode)
	}
	return claims, nil
}

// NewVerifier selects the verifier for the configured mode.
func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	switch cfg.VerifyMode {
	case config.VerifyModeNone, "":
		return NewUnverifiedDecoder(), nil
	case config.VerifyModeHMAC:
		return NewHMACVerifier(cfg.HMACSecret), nil
	default:
		return nil, fmt.Errorf("unknown verify mode %q", cfg.VerifyMode)
	}
}

// Resolver derives the caller's subject and role from a credential.
type Resolver struct {
	verifier    Verifier
	groupsClaim string
	adminGroup  string
}

// NewResolver constructs a resolver reading groups from groupsClaim.
func NewResolver(verifier Verifier, groupsClaim, adminGroup string) *Resolver {
	if groupsClaim == "" {
		groupsClaim = "cognito:groups"
	}
	if adminGroup == "" {
		adminGroup = string(domain.RoleAdmin)
	}
	return &Resolver{verifier: verifier, groupsClaim: groupsClaim, adminGroup: adminGroup}
}

// Resolve returns the caller identity for token.
func (r *Resolver) Resolve(token string) (domain.Caller, error) {
	if token == "" {
		return domain.Caller{}, fmt.Errorf("%w: empty token", ErrDecode)
	}
	claims, err := r.verifier.Verify(token)
	if err != nil {
		return domain.Caller{}, err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Caller{}, fmt.Errorf("%w: missing sub claim", ErrDecode)
	}

	role := domain.RoleUser
	for _, group := range groupsFrom(claims[r.groupsClaim]) {
		if group == r.adminGroup {
			role = domain.RoleAdmin
			break
		}
	}
	return domain.Caller{Subject: sub, Role: role}, nil
}

func groupsFrom(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		return []string{v}
	default:
		return nil
	}
}
