package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const accountsCollection = "accounts"

// caseInsensitive enables case-insensitive string comparison for unique
// identity indexes (collation strength 2 ignores case and diacritics only).
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// accountDoc is the persistence shape of Account. The UUID is stored as its
// canonical string form so identity lookups stay readable in queries and
// logs.
type accountDoc struct {
	ID                string    `bson:"_id"`
	Username          string    `bson:"username"`
	Email             string    `bson:"email"`
	PasswordHash      []byte    `bson:"password_hash"`
	ProfileImage      string    `bson:"profile_image,omitempty"`
	ProfileImageKey   string    `bson:"profile_image_key,omitempty"`
	Preferences       []string  `bson:"preferences,omitempty"`
	ResetTokenDigest  string    `bson:"reset_token_digest,omitempty"`
	ResetTokenExpires time.Time `bson:"reset_token_expires,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func toDoc(a *Account) *accountDoc {
	return &accountDoc{
		ID:                a.ID.String(),
		Username:          a.Username,
		Email:             a.Email,
		PasswordHash:      a.PasswordHash,
		ProfileImage:      a.ProfileImage,
		ProfileImageKey:   a.ProfileImageKey,
		Preferences:       a.Preferences,
		ResetTokenDigest:  a.ResetTokenDigest,
		ResetTokenExpires: a.ResetTokenExpires,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (d *accountDoc) toAccount() (*Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed account id %q: %w", d.ID, err)
	}
	return &Account{
		ID:                id,
		Username:          d.Username,
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		ProfileImage:      d.ProfileImage,
		ProfileImageKey:   d.ProfileImageKey,
		Preferences:       d.Preferences,
		ResetTokenDigest:  d.ResetTokenDigest,
		ResetTokenExpires: d.ResetTokenExpires,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

// MongoStorage implements Storage backed by a MongoDB collection. Writes to
// a single account use single-document operations, which MongoDB applies
// atomically.
type MongoStorage struct {
	collection *mongo.Collection
}

// NewMongoStorage creates account storage on the given database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection(accountsCollection)}
}

// EnsureIndexes creates the unique identity indexes and the reset token
// lookup index. Safe to call on every startup.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(caseInsensitive),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "reset_token_digest", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}
	return nil
}

func (s *MongoStorage) Create(ctx context.Context, acct *Account) error {
	_, err := s.collection.InsertOne(ctx, toDoc(acct))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *MongoStorage) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()}, nil)
}

func (s *MongoStorage) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, bson.M{"email": email}, caseInsensitive)
}

func (s *MongoStorage) FindByEmailOrUsername(ctx context.Context, email, username string) (*Account, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}}
	return s.findOne(ctx, filter, caseInsensitive)
}

func (s *MongoStorage) FindByResetDigest(ctx context.Context, digest string) (*Account, error) {
	if digest == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"reset_token_digest": digest}, nil)
}

func (s *MongoStorage) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*Account, error) {
	set := bson.M{"updated_at": time.Now()}
	unset := bson.M{}

	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.PasswordHash != nil {
		set["password_hash"] = update.PasswordHash
	}
	if update.Preferences != nil {
		set["preferences"] = *update.Preferences
	}
	if update.ProfileImage != nil {
		if *update.ProfileImage == "" {
			unset["profile_image"] = ""
		} else {
			set["profile_image"] = *update.ProfileImage
		}
	}
	if update.ProfileImageKey != nil {
		if *update.ProfileImageKey == "" {
			unset["profile_image_key"] = ""
		} else {
			set["profile_image_key"] = *update.ProfileImageKey
		}
	}

	change := bson.M{"$set": set}
	if len(unset) > 0 {
		change["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc accountDoc
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, change, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return doc.toAccount()
}

func (s *MongoStorage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	return s.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		},
	})
}

func (s *MongoStorage) SetResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	return s.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{
			"reset_token_digest":  digest,
			"reset_token_expires": expiresAt,
			"updated_at":          time.Now(),
		},
	})
}

func (s *MongoStorage) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	return s.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$unset": bson.M{
			"reset_token_digest":  "",
			"reset_token_expires": "",
		},
		"$set": bson.M{"updated_at": time.Now()},
	})
}

// CompletePasswordReset filters on the digest still being present, so of two
// concurrent attempts with the same token exactly one observes the match and
// wins.
func (s *MongoStorage) CompletePasswordReset(ctx context.Context, id uuid.UUID, digest string, passwordHash []byte) error {
	filter := bson.M{
		"_id":                id.String(),
		"reset_token_digest": digest,
	}
	result, err := s.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		},
		"$unset": bson.M{
			"reset_token_digest":  "",
			"reset_token_expires": "",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete password reset: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}

func (s *MongoStorage) findOne(ctx context.Context, filter bson.M, collation *options.Collation) (*Account, error) {
	opts := options.FindOne()
	if collation != nil {
		opts = opts.SetCollation(collation)
	}

	var doc accountDoc
	if err := s.collection.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return doc.toAccount()
}

func (s *MongoStorage) updateOne(ctx context.Context, filter, change bson.M) error {
	result, err := s.collection.UpdateOne(ctx, filter, change)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
