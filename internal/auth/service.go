// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/authlib/authlib/pkg/errutil"
)

const tracerName = "github.com/authlib/authlib/internal/auth"

// Request field names, as reported in validation messages.
const (
	FieldUserID      = "user_id"
	FieldPassword    = "password"
	FieldToken       = "reset_token"
	FieldNewPassword = "new_password"
	FieldKey         = "key"
)

// Operation names used for logging, tracing, and metrics.
const (
	OpAddUser              = "add_user"
	OpDeleteUser           = "delete_user"
	OpLogin                = "login"
	OpRequestPasswordReset = "request_password_reset"
	OpVerifyResetToken     = "verify_reset_token"
	OpResetPassword        = "reset_password"
	OpSetMetadata          = "set_metadata"
	OpGetMetadata          = "get_metadata"
)

// dummyPassword seeds the digest verified for unknown users so that login
// latency does not reveal whether a user exists.
const dummyPassword = "authlib-timing-equalizer"

// Service runs the login and password-reset flows against a CredentialStore.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store     CredentialStore
	hasher    PasswordHasher
	validator InputValidator
	logger    *slog.Logger
	now       func() time.Time
	tokenTTL  time.Duration
	tracer    trace.Tracer

	dummyHash string
	dummySalt string
}

// Option configures a Service.
type Option func(*Service)

// WithHasher sets the password hasher. Default: SHA256Hasher.
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithValidator sets the input validator. Default: FieldValidator.
func WithValidator(v InputValidator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenTTL sets how long issued reset tokens stay valid. Default: ResetTokenExpiry.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

// NewService creates a Service over store.
func NewService(store CredentialStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, oops.Code(CodeConfigMissing.String()).Errorf("credential store is required")
	}

	s := &Service{
		store:     store,
		hasher:    NewSHA256Hasher(),
		validator: NewFieldValidator(),
		logger:    slog.Default(),
		now:       time.Now,
		tokenTTL:  ResetTokenExpiry,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.tokenTTL <= 0 {
		return nil, oops.Code(CodeConfigInvalid.String()).
			With("token_ttl", s.tokenTTL.String()).
			Errorf("reset token TTL must be positive")
	}

	hash, salt, err := s.hasher.Hash(dummyPassword, "")
	if err != nil {
		return nil, oops.Code(CodeConfigError.String()).
			With("operation", "prepare dummy digest").
			Wrap(err)
	}
	s.dummyHash, s.dummySalt = hash, salt

	return s, nil
}

// AddUser registers userID with a freshly salted digest of password.
func (s *Service) AddUser(ctx context.Context, userID, password string) Result {
	return s.observe(ctx, OpAddUser, userID, func(ctx context.Context) Result {
		fields := map[string]string{FieldUserID: userID, FieldPassword: password}
		if res, ok := s.require(ctx, OpAddUser, fields, FieldUserID, FieldPassword); !ok {
			return res
		}

		hash, salt, err := s.hasher.Hash(password, "")
		if err != nil {
			return s.internalFailure(ctx, OpAddUser, CodeAuthGeneralError, err)
		}

		if err := s.store.AddCredential(ctx, userID, hash, salt); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return Failure(CodeValidationError, "user already exists")
			}
			return s.storageFailure(ctx, OpAddUser, userID, err)
		}

		s.logger.InfoContext(ctx, "user added", "user_id", userID)
		return Success(nil)
	})
}

// DeleteUser removes userID's credential, reset token, and metadata.
func (s *Service) DeleteUser(ctx context.Context, userID string) Result {
	return s.observe(ctx, OpDeleteUser, userID, func(ctx context.Context) Result {
		if res, ok := s.require(ctx, OpDeleteUser, map[string]string{FieldUserID: userID}, FieldUserID); !ok {
			return res
		}

		if err := s.store.DeleteCredential(ctx, userID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Failure(CodeUserNotFound, "")
			}
			return s.storageFailure(ctx, OpDeleteUser, userID, err)
		}

		s.logger.InfoContext(ctx, "user deleted", "user_id", userID)
		return Success(nil)
	})
}

// Login checks password against the stored credential for userID.
func (s *Service) Login(ctx context.Context, userID, password string) Result {
	return s.observe(ctx, OpLogin, userID, func(ctx context.Context) Result {
		fields := map[string]string{FieldUserID: userID, FieldPassword: password}
		if res, ok := s.require(ctx, OpLogin, fields, FieldUserID, FieldPassword); !ok {
			return res
		}

		cred, res, ok := s.lookup(ctx, OpLogin, userID)
		if !ok {
			if res.Is(CodeUserNotFound) {
				s.hasher.Verify(password, s.dummyHash, s.dummySalt)
			}
			return res
		}

		if !s.hasher.Verify(password, cred.HashedPassword, cred.Salt) {
			s.logger.InfoContext(ctx, "login rejected", "user_id", userID, "code", CodeAuthFailed.String())
			return Failure(CodeAuthFailed, "")
		}

		return Success(nil)
	})
}

// RequestPasswordReset issues a new reset token for userID, superseding any
// earlier one. The plaintext token is returned in the payload and is not
// retrievable afterwards.
func (s *Service) RequestPasswordReset(ctx context.Context, userID string) Result {
	return s.observe(ctx, OpRequestPasswordReset, userID, func(ctx context.Context) Result {
		if res, ok := s.require(ctx, OpRequestPasswordReset, map[string]string{FieldUserID: userID}, FieldUserID); !ok {
			return res
		}

		if _, res, ok := s.lookup(ctx, OpRequestPasswordReset, userID); !ok {
			return res
		}

		token, err := GenerateResetToken()
		if err != nil {
			return s.internalFailure(ctx, OpRequestPasswordReset, CodePasswordResetError, err)
		}
		expiresAt := s.now().Add(s.tokenTTL)

		if err := s.store.StoreResetToken(ctx, userID, token, expiresAt); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Failure(CodeUserNotFound, "")
			}
			return s.storageFailure(ctx, OpRequestPasswordReset, userID, err)
		}

		s.logger.InfoContext(ctx, "password reset requested",
			"user_id", userID,
			"expires_at", expiresAt)
		return Success(map[string]any{
			PayloadToken:     token,
			PayloadExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		})
	})
}

// VerifyResetToken reports whether token is currently valid for userID
// without consuming it.
func (s *Service) VerifyResetToken(ctx context.Context, userID, token string) Result {
	return s.observe(ctx, OpVerifyResetToken, userID, func(ctx context.Context) Result {
		fields := map[string]string{FieldUserID: userID, FieldToken: token}
		if res, ok := s.require(ctx, OpVerifyResetToken, fields, FieldUserID, FieldToken); !ok {
			return res
		}

		if _, res, ok := s.lookup(ctx, OpVerifyResetToken, userID); !ok {
			return res
		}

		return s.checkToken(ctx, OpVerifyResetToken, userID, token)
	})
}

// ResetPassword replaces userID's password when token is the user's live
// reset token, then clears the token. A failed clear is logged and does not
// undo the password change.
func (s *Service) ResetPassword(ctx context.Context, userID, token, newPassword string) Result {
	return s.observe(ctx, OpResetPassword, userID, func(ctx context.Context) Result {
		fields := map[string]string{FieldUserID: userID, FieldToken: token, FieldNewPassword: newPassword}
		if res, ok := s.require(ctx, OpResetPassword, fields, FieldUserID, FieldToken, FieldNewPassword); !ok {
			return res
		}

		if _, res, ok := s.lookup(ctx, OpResetPassword, userID); !ok {
			return res
		}

		if res := s.checkToken(ctx, OpResetPassword, userID, token); !res.Succeeded {
			return res
		}

		hash, salt, err := s.hasher.Hash(newPassword, "")
		if err != nil {
			return s.internalFailure(ctx, OpResetPassword, CodePasswordResetError, err)
		}

		if err := s.store.UpdateCredential(ctx, userID, hash, salt); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Failure(CodeUserNotFound, "")
			}
			return s.storageFailure(ctx, OpResetPassword, userID, err)
		}

		if err := s.store.ClearResetToken(ctx, userID); err != nil {
			TokenCleanupFailures.Inc()
			errutil.LogWarn(ctx, s.logger, "reset token clear failed (best-effort), password was updated", err,
				"operation", "clear_reset_token",
				"user_id", userID)
		}

		s.logger.InfoContext(ctx, "password reset completed", "user_id", userID)
		return Success(nil)
	})
}

// SetMetadata stores value under key for userID. value is JSON-encoded, so
// scalars, maps, slices, and structs are all accepted.
func (s *Service) SetMetadata(ctx context.Context, userID, key string, value any) Result {
	return s.observe(ctx, OpSetMetadata, userID, func(ctx context.Context) Result {
		ms, res, ok := s.metadataStore(ctx, OpSetMetadata, userID, key)
		if !ok {
			return res
		}

		data, err := json.Marshal(value)
		if err != nil {
			return Failure(CodeInvalidFormat, "metadata value cannot be serialized")
		}

		if err := ms.SetMetadata(ctx, userID, key, data); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Failure(CodeUserNotFound, "")
			}
			return s.storageFailure(ctx, OpSetMetadata, userID, err)
		}
		return Success(nil)
	})
}

// GetMetadata returns the value stored under key for userID in Payload["value"].
func (s *Service) GetMetadata(ctx context.Context, userID, key string) Result {
	return s.observe(ctx, OpGetMetadata, userID, func(ctx context.Context) Result {
		ms, res, ok := s.metadataStore(ctx, OpGetMetadata, userID, key)
		if !ok {
			return res
		}

		if _, res, ok := s.lookup(ctx, OpGetMetadata, userID); !ok {
			return res
		}

		data, err := ms.GetMetadata(ctx, userID, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Failure(CodeUserNotFound, "metadata key not found")
			}
			return s.storageFailure(ctx, OpGetMetadata, userID, err)
		}

		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return s.storageFailure(ctx, OpGetMetadata, userID,
				oops.Code(CodeDatabaseQueryError.String()).With("key", key).Wrap(err))
		}
		return Success(map[string]any{PayloadValue: value})
	})
}

// observe wraps an operation in a span and records its outcome.
func (s *Service) observe(ctx context.Context, op, userID string, fn func(context.Context) Result) Result {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "auth."+op, trace.WithAttributes(
		attribute.String("auth.operation", op),
		attribute.String("auth.user_id", userID),
	))
	defer span.End()

	res := fn(ctx)
	if !res.Succeeded {
		span.SetStatus(codes.Error, res.Code.String())
		span.SetAttributes(attribute.String("auth.error_kind", string(res.Kind)))
	}
	RecordOperation(op, res, time.Since(start))
	return res
}

// require fails with RequiredFieldMissing when any named field is empty.
func (s *Service) require(ctx context.Context, op string, fields map[string]string, names ...string) (Result, bool) {
	if s.validator.RequiredFieldsPresent(fields, names...) {
		return Result{}, true
	}
	msg := CodeRequiredFieldMissing.Message()
	if fv, ok := s.validator.(interface {
		MissingFields(map[string]string, ...string) []string
	}); ok {
		if missing := fv.MissingFields(fields, names...); len(missing) > 0 {
			msg += ": " + strings.Join(missing, ", ")
		}
	}
	s.logger.DebugContext(ctx, "request rejected", "operation", op, "reason", msg)
	return Failure(CodeRequiredFieldMissing, msg), false
}

// lookup fetches the credential for userID, translating store errors.
func (s *Service) lookup(ctx context.Context, op, userID string) (*Credential, Result, bool) {
	cred, err := s.store.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Failure(CodeUserNotFound, ""), false
		}
		return nil, s.storageFailure(ctx, op, userID, err), false
	}
	return cred, Result{}, true
}

// checkToken verifies token against the store.
func (s *Service) checkToken(ctx context.Context, op, userID, token string) Result {
	valid, err := s.store.VerifyResetToken(ctx, userID, token)
	if err != nil {
		return s.storageFailure(ctx, op, userID, err)
	}
	if !valid {
		s.logger.InfoContext(ctx, "reset token rejected", "operation", op, "user_id", userID)
		return Failure(CodeInvalidToken, "")
	}
	return Success(nil)
}

// metadataStore validates a metadata request and returns the store's
// metadata extension.
func (s *Service) metadataStore(ctx context.Context, op, userID, key string) (MetadataStore, Result, bool) {
	fields := map[string]string{FieldUserID: userID, FieldKey: key}
	if res, ok := s.require(ctx, op, fields, FieldUserID, FieldKey); !ok {
		return nil, res, false
	}
	if !ValidMetadataKey(key) {
		return nil, Failure(CodeInvalidFormat, "metadata key must be at most 64 characters without '.' or '$'"), false
	}
	ms, ok := s.store.(MetadataStore)
	if !ok {
		return nil, Failure(CodeDatabaseError, "metadata is not supported by this store"), false
	}
	return ms, Result{}, true
}

// storageFailure logs a store error with its context and returns a
// DatabaseError result. The cause never reaches the caller.
func (s *Service) storageFailure(ctx context.Context, op, userID string, err error) Result {
	errutil.LogErrorContext(ctx, s.logger, "credential store call failed", err,
		"operation", op,
		"user_id", userID)
	return Failure(CodeDatabaseError, "")
}

// internalFailure logs an error raised inside the service itself.
func (s *Service) internalFailure(ctx context.Context, op string, code ErrorCode, err error) Result {
	s.logger.ErrorContext(ctx, "auth operation failed", "operation", op, "code", code.String(), "error", err)
	return Failure(code, "")
}
