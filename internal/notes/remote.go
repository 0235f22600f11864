package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"notesync/internal/syncvm"
)

// document is the remote shape of a note. Pointer fields tell a missing
// field apart from an empty one.
type document struct {
	ID        string     `bson:"_id"`
	NoteID    *string    `bson:"noteId,omitempty"`
	Title     *string    `bson:"title,omitempty"`
	Details   *string    `bson:"details,omitempty"`
	Category  *string    `bson:"category,omitempty"`
	CreatedAt *time.Time `bson:"createdAt,omitempty"`
	UserID    string     `bson:"userId"`
}

// toNote builds a fresh cache record; the document key becomes the remote id.
func (d document) toNote() Note {
	n := Note{
		RemoteID: d.ID,
		Title:    UnknownTitle,
		Category: CategoryWork,
		OwnerID:  d.UserID,
	}
	if d.Title != nil && strings.TrimSpace(*d.Title) != "" {
		n.Title = *d.Title
	}
	if d.Details != nil {
		n.Details = *d.Details
	}
	if d.Category != nil {
		if c, err := ParseCategory(*d.Category); err == nil {
			n.Category = c
		}
	}
	if d.CreatedAt != nil {
		n.CreatedAt = *d.CreatedAt
	}
	return n
}

// RemoteRepo stores notes in the per-user remote collection.
type RemoteRepo struct {
	coll *mongo.Collection
}

func NewRemoteRepo(db *mongo.Database) *RemoteRepo {
	return &RemoteRepo{coll: db.Collection("notes")}
}

// EnsureIndexes creates the owner index used by every query
func (r *RemoteRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Insert creates the document keyed by remoteID. createdAt is set by the server.
func (r *RemoteRepo) Insert(ctx context.Context, ownerID, remoteID string, f Fields) error {
	doc := bson.M{
		"noteId":   remoteID,
		"title":    strings.TrimSpace(f.Title),
		"details":  f.Details,
		"category": string(f.category()),
	}
	update := bson.M{
		"$setOnInsert": doc,
		"$currentDate": bson.M{"createdAt": true},
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": remoteID, "userId": ownerID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Patch sets the given fields on an existing note
func (r *RemoteRepo) Patch(ctx context.Context, ownerID, remoteID string, patch syncvm.Patch) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": remoteID, "userId": ownerID},
		bson.M{"$set": bson.M(patch)},
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// Delete removes a note by remote id
func (r *RemoteRepo) Delete(ctx context.Context, ownerID, remoteID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": remoteID, "userId": ownerID})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// FetchAll returns the owner's full snapshot, newest first
func (r *RemoteRepo) FetchAll(ctx context.Context, ownerID string) ([]Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{"userId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}

	notes := make([]Note, len(docs))
	for i, d := range docs {
		notes[i] = d.toNote()
	}
	return notes, nil
}
