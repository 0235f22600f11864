package tasks

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

type document struct {
	ID           string     `bson:"_id"`
	TaskID       *string    `bson:"taskId,omitempty"`
	Title        *string    `bson:"title,omitempty"`
	ReminderDate *time.Time `bson:"reminderDate,omitempty"`
	IsCompleted  *bool      `bson:"isCompleted,omitempty"`
	CreatedAt    *time.Time `bson:"createdAt,omitempty"`
	UserID       string     `bson:"userId"`
}

func (d document) toTask() Task {
	t := Task{
		RemoteID:     d.ID,
		Title:        UnknownTitle,
		ReminderDate: d.ReminderDate,
		OwnerID:      d.UserID,
	}
	if d.Title != nil && strings.TrimSpace(*d.Title) != "" {
		t.Title = *d.Title
	}
	if d.IsCompleted != nil {
		t.IsCompleted = *d.IsCompleted
	}
	if d.CreatedAt != nil {
		t.CreatedAt = *d.CreatedAt
	}
	return t
}

// RemoteRepo stores tasks in the per-user remote collection.
type RemoteRepo struct {
	coll *mongo.Collection
}

func NewRemoteRepo(db *mongo.Database) *RemoteRepo {
	return &RemoteRepo{coll: db.Collection("tasks")}
}

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

// Insert creates an open task keyed by remoteID.
func (r *RemoteRepo) Insert(ctx context.Context, ownerID, remoteID string, f Fields) error {
	doc := bson.M{
		"taskId":      remoteID,
		"title":       strings.TrimSpace(f.Title),
		"isCompleted": false,
	}
	if f.ReminderDate != nil {
		doc["reminderDate"] = f.ReminderDate.UTC()
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": remoteID, "userId": ownerID},
		bson.M{
			"$setOnInsert": doc,
			"$currentDate": bson.M{"createdAt": true},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *RemoteRepo) Patch(ctx context.Context, ownerID, remoteID string, patch syncvm.Patch) error {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range patch {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": remoteID, "userId": ownerID}, update)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *RemoteRepo) Delete(ctx context.Context, ownerID, remoteID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": remoteID, "userId": ownerID})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *RemoteRepo) FetchAll(ctx context.Context, ownerID string) ([]Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{"userId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]Task, len(docs))
	for i, d := range docs {
		tasks[i] = d.toTask()
	}
	return tasks, nil
}
