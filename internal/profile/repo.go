package profile

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repo struct {
	coll *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection("users")}
}

// Create writes the profile document of a new account
func (r *Repo) Create(ctx context.Context, p *Profile) error {
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", userID, err)
	}
	return &p, nil
}

// Update sets the given fields on the user's profile
func (r *Repo) Update(ctx context.Context, userID string, fields map[string]any) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProfileNotFound
	}
	return nil
}
