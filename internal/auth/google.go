package auth

import (
	"errors"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleUser is the identity extracted from a verified Google ID token.
type GoogleUser struct {
	Email string
	Name  string
}

// GoogleVerifier validates Google ID tokens for one OAuth client.
// The zero clientID disables audience checking (dev only).
type GoogleVerifier struct {
	ClientID string
}

// Verify checks the token signature and audience against Google's keys
// and returns the embedded identity.
func (v GoogleVerifier) Verify(idToken string) (GoogleUser, error) {
	if idToken == "" {
		return GoogleUser{}, errors.New("id token required")
	}

	verifier := googleAuthIDTokenVerifier.Verifier{}
	var audience []string
	if v.ClientID != "" {
		audience = []string{v.ClientID}
	}
	if err := verifier.VerifyIDToken(idToken, audience); err != nil {
		return GoogleUser{}, err
	}

	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return GoogleUser{}, err
	}
	if claims.Email == "" {
		return GoogleUser{}, errors.New("token carries no email")
	}
	return GoogleUser{Email: claims.Email, Name: claims.Name}, nil
}
