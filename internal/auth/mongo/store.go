// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package mongo provides a MongoDB credential store. Each user is one
// document; the reset token and metadata are embedded in it, so every
// mutation is a single-document atomic update.
package mongo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/authlib/authlib/internal/auth"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "credentials"

type credentialDoc struct {
	UserID         string            `bson:"_id"`
	HashedPassword string            `bson:"hashed_password"`
	Salt           string            `bson:"salt"`
	CreatedAt      time.Time         `bson:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at"`
	ResetToken     *resetTokenDoc    `bson:"reset_token,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty"`
}

type resetTokenDoc struct {
	ID        string    `bson:"id"`
	TokenHash string    `bson:"token_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store implements auth.CredentialStore and auth.MetadataStore on a single
// MongoDB collection.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for timestamps and token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store over coll.
func NewStore(coll *mongo.Collection, opts ...Option) *Store {
	s := &Store{coll: coll, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	Timeout time.Duration
	Retries uint64
	Backoff time.Duration
	Logger  *slog.Logger
}

// Connect dials uri and pings the primary, retrying with exponential backoff.
func Connect(ctx context.Context, uri string, opts ConnectOptions) (*mongo.Client, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout).SetServerSelectionTimeout(opts.Timeout)
	}
	if err := clientOpts.Validate(); err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse mongo uri").Wrap(err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create mongo client").Wrap(err)
	}

	attempt := 0
	err = retry.Do(ctx, retry.WithMaxRetries(opts.Retries, retry.NewExponential(backoff)), func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx, nil); err != nil {
			logger.WarnContext(ctx, "mongo not reachable, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return client, nil
}

// EnsureIndexes creates the index used to find expired tokens.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "reset_token.expires_at", Value: 1}},
		Options: options.Index().SetName("reset_token_expires_at").SetSparse(true),
	})
	if err != nil {
		return oops.Code("DB_INDEX_FAILED").With("collection", s.coll.Name()).Wrap(err)
	}
	return nil
}

// GetCredential returns the credential for userID.
func (s *Store) GetCredential(ctx context.Context, userID string) (*auth.Credential, error) {
	var doc credentialDoc
	err := s.coll.FindOne(ctx, byID(userID),
		options.FindOne().SetProjection(bson.D{{Key: "reset_token", Value: 0}, {Key: "metadata", Value: 0}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(userID)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_QUERY_FAILED").
			With("operation", "find credential").
			With("user_id", userID).
			Wrap(err)
	}
	return &auth.Credential{
		UserID:         doc.UserID,
		HashedPassword: doc.HashedPassword,
		Salt:           doc.Salt,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}

// AddCredential inserts a new user document.
func (s *Store) AddCredential(ctx context.Context, userID, hashedPassword, salt string) error {
	now := s.now()
	_, err := s.coll.InsertOne(ctx, credentialDoc{
		UserID:         userID,
		HashedPassword: hashedPassword,
		Salt:           salt,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return oops.Code("CREDENTIAL_EXISTS").With("user_id", userID).Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("CREDENTIAL_CREATE_FAILED").
			With("operation", "insert credential").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// UpdateCredential replaces hash and salt together.
func (s *Store) UpdateCredential(ctx context.Context, userID, hashedPassword, salt string) error {
	return s.updateExisting(ctx, "CREDENTIAL_UPDATE_FAILED", userID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "hashed_password", Value: hashedPassword},
		{Key: "salt", Value: salt},
		{Key: "updated_at", Value: s.now()},
	}}})
}

// DeleteCredential removes the user document with its token and metadata.
func (s *Store) DeleteCredential(ctx context.Context, userID string) error {
	res, err := s.coll.DeleteOne(ctx, byID(userID))
	if err != nil {
		return oops.Code("CREDENTIAL_DELETE_FAILED").
			With("operation", "delete credential").
			With("user_id", userID).
			Wrap(err)
	}
	if res.DeletedCount == 0 {
		return notFound(userID)
	}
	return nil
}

// StoreResetToken overwrites the embedded token.
func (s *Store) StoreResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	rt, err := auth.NewResetToken(userID, token, expiresAt, s.now())
	if err != nil {
		return oops.With("operation", "store reset token").Wrap(err)
	}
	return s.updateExisting(ctx, "RESET_TOKEN_STORE_FAILED", userID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "reset_token", Value: resetTokenDoc{
			ID:        rt.ID.String(),
			TokenHash: rt.TokenHash,
			ExpiresAt: rt.ExpiresAt,
			CreatedAt: rt.CreatedAt,
		}},
	}}})
}

// VerifyResetToken checks token against the embedded digest and expiry.
func (s *Store) VerifyResetToken(ctx context.Context, userID, token string) (bool, error) {
	var doc credentialDoc
	err := s.coll.FindOne(ctx, byID(userID),
		options.FindOne().SetProjection(bson.D{{Key: "reset_token", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("RESET_TOKEN_QUERY_FAILED").
			With("operation", "find reset token").
			With("user_id", userID).
			Wrap(err)
	}
	if doc.ResetToken == nil {
		return false, nil
	}
	rt := auth.ResetToken{UserID: userID, TokenHash: doc.ResetToken.TokenHash, ExpiresAt: doc.ResetToken.ExpiresAt}
	return rt.Matches(token) && rt.ValidAt(s.now()), nil
}

// ClearResetToken unsets the embedded token. A missing user or token is success.
func (s *Store) ClearResetToken(ctx context.Context, userID string) error {
	_, err := s.coll.UpdateOne(ctx, byID(userID), bson.D{{Key: "$unset", Value: bson.D{{Key: "reset_token", Value: ""}}}})
	if err != nil {
		return oops.Code("RESET_TOKEN_CLEAR_FAILED").
			With("operation", "unset reset token").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// SetMetadata stores the JSON value as a string under metadata.<key>.
func (s *Store) SetMetadata(ctx context.Context, userID, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.updateExisting(ctx, "METADATA_STORE_FAILED", userID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "metadata." + key, Value: string(value)},
	}}})
}

// GetMetadata returns the JSON value stored under key.
func (s *Store) GetMetadata(ctx context.Context, userID, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var doc credentialDoc
	err := s.coll.FindOne(ctx, byID(userID),
		options.FindOne().SetProjection(bson.D{{Key: "metadata." + key, Value: 1}}),
	).Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oops.Code("METADATA_QUERY_FAILED").
			With("operation", "find metadata").
			With("user_id", userID).
			With("key", key).
			Wrap(err)
	}
	value, ok := doc.Metadata[key]
	if !ok {
		return nil, oops.Code("METADATA_NOT_FOUND").
			With("user_id", userID).
			With("key", key).
			Wrap(auth.ErrNotFound)
	}
	return []byte(value), nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	if err := s.coll.Database().Client().Disconnect(context.Background()); err != nil {
		return oops.Code("DB_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// updateExisting applies update to userID's document, failing with
// ErrNotFound when no document matched.
func (s *Store) updateExisting(ctx context.Context, code, userID string, update bson.D) error {
	res, err := s.coll.UpdateOne(ctx, byID(userID), update)
	if err != nil {
		return oops.Code(code).With("user_id", userID).Wrap(err)
	}
	if res.MatchedCount == 0 {
		return notFound(userID)
	}
	return nil
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, ".$") {
		return oops.Code("METADATA_KEY_INVALID").With("key", key).Errorf("metadata key cannot be empty or contain '.' or '$'")
	}
	return nil
}

func byID(userID string) bson.D {
	return bson.D{{Key: "_id", Value: userID}}
}

func notFound(userID string) error {
	return oops.Code("CREDENTIAL_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrNotFound)
}

// Compile-time interface checks.
var (
	_ auth.CredentialStore = (*Store)(nil)
	_ auth.MetadataStore   = (*Store)(nil)
)
