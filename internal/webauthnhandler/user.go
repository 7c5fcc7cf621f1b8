package webauthnhandler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
)

type sessionKey string

const (
	webAuthnSessionKey sessionKey = "webauthn_session"
	userIDSessionKey   sessionKey = "webauthn_user_id"
)

const webauthnUserIDLength = 32

// user is an athlete as seen by the passkey ceremonies. Users are anonymous, identified only by a random handle.
type user struct {
	webauthnID  []byte
	displayName string
	credentials []webauthn.Credential
}

func newRandomUser() (*user, error) {
	id := make([]byte, webauthnUserIDLength)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("read random user handle: %w", err)
	}
	return &user{
		webauthnID:  id,
		displayName: "Athlete " + hex.EncodeToString(id[:4]),
		credentials: nil,
	}, nil
}

func (u *user) WebAuthnID() []byte {
	return u.webauthnID
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
