package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/webauthn"
)

func (h *WebAuthnHandler) upsertUser(ctx context.Context, u *user) error {
	stmt := `INSERT INTO users (webauthn_user_id, display_name)
VALUES (:webauthn_user_id, :display_name)
ON CONFLICT (webauthn_user_id) DO UPDATE SET display_name = :display_name`
	_, err := h.database.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("webauthn_user_id", u.WebAuthnID()),
		sql.Named("display_name", u.WebAuthnDisplayName()))
	if err != nil {
		return fmt.Errorf("db upsert user %s (webauthn id: %s): %w",
			u.WebAuthnDisplayName(), hex.EncodeToString(u.WebAuthnID()), err)
	}
	return nil
}

// getUser loads a user and their passkeys by the user handle stored in the authenticator.
func (h *WebAuthnHandler) getUser(ctx context.Context, webauthnUserID []byte) (*user, error) {
	var (
		err  error
		rows *sql.Rows
	)

	stmt := `SELECT webauthn_user_id, display_name FROM users WHERE webauthn_user_id = ?`
	var u user
	if err = h.database.ReadOnly.QueryRowContext(ctx, stmt, webauthnUserID).Scan(&u.webauthnID, &u.displayName); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}

	// Passkeys of the user.
	stmt = `SELECT id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = (SELECT id FROM users WHERE webauthn_user_id = ?)`
	if rows, err = h.database.ReadOnly.QueryContext(ctx, stmt, webauthnUserID); err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", slog.Any("error", closeErr))
		}
	}()

	for rows.Next() {
		var (
			credential webauthn.Credential
			transport  []byte
		)
		if err = rows.Scan(
			&credential.ID,
			&credential.PublicKey,
			&credential.AttestationType,
			&transport,
			&credential.Flags.UserPresent,
			&credential.Flags.UserVerified,
			&credential.Flags.BackupEligible,
			&credential.Flags.BackupState,
			&credential.Authenticator.AAGUID,
			&credential.Authenticator.SignCount,
			&credential.Authenticator.CloneWarning,
			&credential.Authenticator.Attachment,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if err = json.Unmarshal(transport, &credential.Transport); err != nil {
			return nil, fmt.Errorf("JSON decode transport: %w", err)
		}
		u.credentials = append(u.credentials, credential)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("check rows error: %w", err)
	}

	return &u, nil
}

func (h *WebAuthnHandler) upsertCredential(ctx context.Context, webauthnUserID []byte, credential *webauthn.Credential) error {
	var err error
	stmt := `INSERT INTO credentials (id,
                         user_id,
                         public_key,
                         attestation_type,
                         transport,
                         flag_user_present,
                         flag_user_verified,
                         flag_backup_eligible,
                         flag_backup_state,
                         authenticator_aaguid,
                         authenticator_sign_count,
                         authenticator_clone_warning,
                         authenticator_attachment)
VALUES ($1, (SELECT id FROM users WHERE webauthn_user_id = $2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET attestation_type            = EXCLUDED.attestation_type,
                               transport                   = EXCLUDED.transport,
                               flag_user_present           = EXCLUDED.flag_user_present,
                               flag_user_verified          = EXCLUDED.flag_user_verified,
                               flag_backup_eligible        = EXCLUDED.flag_backup_eligible,
                               flag_backup_state           = EXCLUDED.flag_backup_state,
                               authenticator_aaguid        = EXCLUDED.authenticator_aaguid,
                               authenticator_sign_count    = EXCLUDED.authenticator_sign_count,
                               authenticator_clone_warning = EXCLUDED.authenticator_clone_warning,
                               authenticator_attachment    = EXCLUDED.authenticator_attachment`
	var encodedTransport []byte
	encodedTransport, err = json.Marshal(credential.Transport)
	if err != nil {
		return fmt.Errorf("JSON encode transport: %w", err)
	}
	_, err = h.database.ReadWrite.ExecContext(
		ctx,
		stmt,
		credential.ID,
		webauthnUserID,
		credential.PublicKey,
		credential.AttestationType,
		string(encodedTransport),
		credential.Flags.UserPresent,
		credential.Flags.UserVerified,
		credential.Flags.BackupEligible,
		credential.Flags.BackupState,
		credential.Authenticator.AAGUID,
		credential.Authenticator.SignCount,
		credential.Authenticator.CloneWarning,
		credential.Authenticator.Attachment,
	)
	if err != nil {
		return fmt.Errorf("db upsert credential (webauthn id: %s, credential id: %s): %w",
			hex.EncodeToString(webauthnUserID),
			hex.EncodeToString(credential.ID),
			err)
	}
	return nil
}

// getUserID returns the integer id of the user or sql.ErrNoRows if the user does not exist.
func (h *WebAuthnHandler) getUserID(ctx context.Context, webauthnUserID []byte) (int, error) {
	var id int
	stmt := `SELECT id FROM users WHERE webauthn_user_id = ?`
	if err := h.database.ReadOnly.QueryRowContext(ctx, stmt, webauthnUserID).Scan(&id); err != nil {
		return 0, fmt.Errorf("query user id: %w", err)
	}
	return id, nil
}

// deleteUser removes the user. Credentials, workouts and preferences cascade.
func (h *WebAuthnHandler) deleteUser(ctx context.Context, webauthnUserID []byte) error {
	if _, err := h.database.ReadWrite.ExecContext(ctx, `DELETE FROM users WHERE webauthn_user_id = ?`,
		webauthnUserID); err != nil {
		return fmt.Errorf("db delete user: %w", err)
	}
	return nil
}
