package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the identity the authentication collaborator vouches
// for. The broker only ever reads the user id and display name out of it.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens presented at the websocket handshake.
// The signing key is injected at process start, never read from globals.
type Verifier struct {
	key []byte
}

func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key}
}

// GenerateToken creates a signed JWT for a specific user. Token issuance
// belongs to the authentication collaborator; this helper exists for tests
// and local tooling.
func (v *Verifier) GenerateToken(userID, displayName string, ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chattr",
		},
	}

	// HS256 (HMAC with SHA256), signed with the shared secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (v *Verifier) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
