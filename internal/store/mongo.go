package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jpbarro/HoW-X/internal/models"
)

// MongoStore handles post CRUD in MongoDB.
type MongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("posts"), now: time.Now}
}

// Migrate creates the indexes the post queries rely on.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

// Insert stores post and fills in its ID and timestamps.
func (s *MongoStore) Insert(ctx context.Context, post *models.Post) error {
	now := s.now().UTC()
	post.ID = primitive.NilObjectID
	post.CreatedAt = now
	post.UpdatedAt = now
	res, err := s.col.InsertOne(ctx, post)
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	post.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return posts, nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var post models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find one: %w", err)
	}
	return &post, nil
}

// Update applies changes and returns the post as stored afterwards.
func (s *MongoStore) Update(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error) {
	set := bson.M{"updated_at": s.now().UTC()}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Content != nil {
		set["content"] = *changes.Content
	}
	return s.findAndSet(ctx, id, set)
}

// SetImage points the post at a new image key.
func (s *MongoStore) SetImage(ctx context.Context, id, key string) (*models.Post, error) {
	return s.findAndSet(ctx, id, bson.M{"image": key, "updated_at": s.now().UTC()})
}

func (s *MongoStore) findAndSet(ctx context.Context, id string, set bson.M) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo update: %w", err)
	}
	return &post, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
