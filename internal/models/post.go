package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a user-authored entry stored in MongoDB. Image holds the file
// store key of the attached image, if any.
type Post struct {
	ID        primitive.ObjectID `json:"id"                  bson:"_id,omitempty"`
	Title     string             `json:"title"               bson:"title"`
	Content   string             `json:"content"             bson:"content"`
	Image     string             `json:"image"               bson:"image"`
	ImageURL  string             `json:"image_url,omitempty" bson:"-"`
	Author    string             `json:"author"              bson:"author"`
	CreatedAt time.Time          `json:"created_at"          bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"          bson:"updated_at"`
}

// PostChanges lists the fields an update sets. Nil means unchanged.
type PostChanges struct {
	Title   *string
	Content *string
}

// Empty reports whether no field is being changed.
func (c PostChanges) Empty() bool {
	return c.Title == nil && c.Content == nil
}
