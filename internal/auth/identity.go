package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// User is an account known to the identity provider.
type User struct {
	UID   string
	Email string
}

// IdentityProvider authenticates and creates accounts.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	CreateUser(ctx context.Context, email, password string) (*User, error)
	DeleteUser(ctx context.Context, uid string) error
}

type account struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// MongoIdentity keeps bcrypt-hashed credentials in the accounts collection.
type MongoIdentity struct {
	coll *mongo.Collection
}

func NewMongoIdentity(db *mongo.Database) *MongoIdentity {
	return &MongoIdentity{coll: db.Collection("accounts")}
}

// EnsureIndexes makes email unique
func (m *MongoIdentity) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (m *MongoIdentity) CreateUser(ctx context.Context, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := account{
		UID:          uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := m.coll.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &User{UID: acc.UID, Email: acc.Email}, nil
}

// DeleteUser removes the account with the given uid. A missing account is
// not an error.
func (m *MongoIdentity) DeleteUser(ctx context.Context, uid string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return fmt.Errorf("delete account %s: %w", uid, err)
	}
	return nil
}

func (m *MongoIdentity) SignIn(ctx context.Context, email, password string) (*User, error) {
	var acc account
	err := m.coll.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &User{UID: acc.UID, Email: acc.Email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
