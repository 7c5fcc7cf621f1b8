// Package webauthnhandler signs users up and in with passkeys and keeps the signed-in user in the session.
package webauthnhandler

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/sqlite"
)

const ceremonyTimeout = 5 * time.Minute

//nolint:gochecknoglobals // gob registration is process wide.
var registerSessionData sync.Once

type WebAuthnHandler struct {
	logger         *slog.Logger
	webAuthn       *webauthn.WebAuthn
	sessionManager *scs.SessionManager
	database       *sqlite.Database
}

// relyingPartyConfig describes this site to authenticators. Local development runs on plain http with the
// listen address as origin.
func relyingPartyConfig(addr string, fqdn string) *webauthn.Config {
	origins := []string{"https://" + fqdn}
	if fqdn == "localhost" {
		//goland:noinspection HttpUrlsUsage // local server.
		origins = []string{"http://" + addr}
	}
	ceremony := webauthn.TimeoutConfig{Enforce: true, Timeout: ceremonyTimeout, TimeoutUVD: ceremonyTimeout}

	return &webauthn.Config{
		RPID:                        fqdn,
		RPDisplayName:               "WOD Coach",
		RPOrigins:                   origins,
		RPTopOrigins:                nil,
		RPTopOriginVerificationMode: protocol.TopOriginIgnoreVerificationMode,
		AttestationPreference:       protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      new(true),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		},
		Debug:                false,
		EncodeUserIDAsString: false,
		Timeouts:             webauthn.TimeoutsConfig{Login: ceremony, Registration: ceremony},
		MDS:                  nil,
	}
}

func New(
	addr string,
	fqdn string,
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	db *sqlite.Database,
) (*WebAuthnHandler, error) {
	// The ceremony state lives in the session between the begin and finish requests.
	registerSessionData.Do(func() {
		gob.Register(webauthn.SessionData{}) //nolint:exhaustruct // registration only needs the type.
	})

	webAuthn, err := webauthn.New(relyingPartyConfig(addr, fqdn))
	if err != nil {
		return nil, errors.Wrap(err, "new webauthn", slog.String("fqdn", fqdn))
	}

	return &WebAuthnHandler{
		logger:         logger,
		webAuthn:       webAuthn,
		sessionManager: sessionManager,
		database:       db,
	}, nil
}

// BeginRegistration creates a new anonymous athlete and returns the credential creation options as JSON.
func (h *WebAuthnHandler) BeginRegistration(ctx context.Context) ([]byte, error) {
	u, err := newRandomUser()
	if err != nil {
		return nil, fmt.Errorf("new user: %w", err)
	}

	opts, session, err := h.webAuthn.BeginRegistration(
		u,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      protocol.ResidentKeyNotRequired(),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		}),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)
	if err = h.upsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	out, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("JSON encode registration options: %w", err)
	}
	return out, nil
}

func (h *WebAuthnHandler) ceremonySession(ctx context.Context) (webauthn.SessionData, error) {
	value := h.sessionManager.Get(ctx, string(webAuthnSessionKey))
	session, ok := value.(webauthn.SessionData)
	if !ok {
		return session, errors.New("no webauthn ceremony in session")
	}
	return session, nil
}

// signIn rotates the session token and stores the user in the session.
func (h *WebAuthnHandler) signIn(ctx context.Context, webauthnUserID []byte) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	h.sessionManager.Remove(ctx, string(webAuthnSessionKey))
	h.sessionManager.Put(ctx, string(userIDSessionKey), webauthnUserID)
	return nil
}

// FinishRegistration stores the new passkey and signs the user in.
func (h *WebAuthnHandler) FinishRegistration(r *http.Request) error {
	ctx := r.Context()
	session, err := h.ceremonySession(ctx)
	if err != nil {
		return err
	}

	u, err := h.getUser(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	credential, err := h.webAuthn.FinishRegistration(u, session, r)
	if err != nil {
		return fmt.Errorf("finish webauthn registration: %w", err)
	}
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return fmt.Errorf("upsert webauthn credential: %w", err)
	}

	return h.signIn(ctx, u.WebAuthnID())
}

// BeginLogin starts a discoverable login and returns the assertion options as JSON.
func (h *WebAuthnHandler) BeginLogin(ctx context.Context) ([]byte, error) {
	options, session, err := h.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, fmt.Errorf("begin discoverable webauthn login: %w", err)
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)

	out, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("JSON encode login options: %w", err)
	}
	return out, nil
}

// FinishLogin validates the passkey assertion and signs the user in.
func (h *WebAuthnHandler) FinishLogin(r *http.Request) error {
	ctx := r.Context()
	session, err := h.ceremonySession(ctx)
	if err != nil {
		return err
	}

	parsedResponse, err := protocol.ParseCredentialRequestResponse(r)
	if err != nil {
		return fmt.Errorf("parse credential request response: %w", err)
	}
	findUser := func(_, userHandle []byte) (webauthn.User, error) {
		return h.getUser(ctx, userHandle)
	}
	u, credential, err := h.webAuthn.ValidatePasskeyLogin(findUser, session, parsedResponse)
	if err != nil {
		return fmt.Errorf("validate passkey login: %w", err)
	}
	if err = h.upsertCredential(ctx, u.WebAuthnID(), credential); err != nil {
		return fmt.Errorf("upsert webauthn credential: %w", err)
	}

	return h.signIn(ctx, u.WebAuthnID())
}

func (h *WebAuthnHandler) Logout(ctx context.Context) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	h.sessionManager.Remove(ctx, string(userIDSessionKey))
	return nil
}

// DeleteUser removes the signed-in user together with their credentials, workouts and preferences, and signs
// them out.
func (h *WebAuthnHandler) DeleteUser(ctx context.Context) error {
	webauthnUserID := h.sessionManager.GetBytes(ctx, string(userIDSessionKey))
	if webauthnUserID == nil {
		return nil
	}
	if err := h.deleteUser(ctx, webauthnUserID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := h.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
