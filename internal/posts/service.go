package posts

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jpbarro/HoW-X/internal/apperr"
	"github.com/jpbarro/HoW-X/internal/models"
	"github.com/jpbarro/HoW-X/internal/store"
)

// PostStore defines the interface for post persistence.
type PostStore interface {
	Insert(ctx context.Context, post *models.Post) error
	List(ctx context.Context) ([]models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error)
	SetImage(ctx context.Context, id, key string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
}

// FileStore defines the interface for image storage.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Upload is a file received with a request.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

type CreateInput struct {
	Title   string
	Content string
	File    *Upload
}

// UpdateInput carries the fields supplied with an update. When Partial is
// false every field is required.
type UpdateInput struct {
	Title   *string
	Content *string
	File    *Upload
	Partial bool
}

const (
	msgMissingFields = "Missing required fields"
	msgNotFound      = "Post not found."
	msgCreateFailed  = "Error creating post"
	msgUpdateFailed  = "Error updating post."
	msgDeleteFailed  = "Error deleting post."
	msgReadFailed    = "Error reading posts."
)

// Service implements the post lifecycle on top of a PostStore and a
// FileStore. Every returned error is an *apperr.Error.
type Service struct {
	posts PostStore
	files FileStore
	log   logrus.FieldLogger
}

func NewService(posts PostStore, files FileStore, log logrus.FieldLogger) *Service {
	return &Service{posts: posts, files: files, log: log}
}

// Create stores a new post authored by userID with its image. The row is
// inserted first because the image key embeds the post id; if the image
// cannot be stored the row is deleted again.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Post, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("not authenticated")
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" || in.File == nil {
		return nil, apperr.Validation(msgMissingFields)
	}

	post := &models.Post{Title: title, Content: content, Author: userID}
	if err := s.posts.Insert(ctx, post); err != nil {
		s.log.WithError(err).WithField("author", userID).Error("error creating post")
		return nil, apperr.Internal(msgCreateFailed)
	}

	id := post.ID.Hex()
	log := s.log.WithFields(logrus.Fields{"post_id": id, "author": userID})
	key := StorageKey(id, in.File.Name)

	if err := s.files.Upload(ctx, key, in.File.Body, in.File.Size, contentType(in.File)); err != nil {
		log.WithError(err).Error("error uploading post image")
		s.discardPost(ctx, id, "")
		return nil, apperr.Internal(msgCreateFailed)
	}

	saved, err := s.posts.SetImage(ctx, id, key)
	if err != nil {
		log.WithError(err).Error("error attaching post image")
		s.discardPost(ctx, id, key)
		return nil, apperr.Internal(msgCreateFailed)
	}

	log.WithField("image", key).Info("post created")
	return s.withURL(ctx, saved), nil
}

// discardPost undoes a partially created post.
func (s *Service) discardPost(ctx context.Context, id, key string) {
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithField("post_id", id)
	if key != "" {
		if err := s.files.Remove(ctx, key); err != nil {
			log.WithError(err).WithField("image", key).Error("rollback: image removal failed")
		}
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		log.WithError(err).Error("rollback: post removal failed")
	}
}

func (s *Service) List(ctx context.Context) ([]models.Post, error) {
	list, err := s.posts.List(ctx)
	if err != nil {
		s.log.WithError(err).Error("error listing posts")
		return nil, apperr.Internal(msgReadFailed)
	}
	if list == nil {
		list = []models.Post{}
	}
	for i := range list {
		s.fillURL(ctx, &list[i])
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.find(ctx, id, msgReadFailed)
	if err != nil {
		return nil, err
	}
	return s.withURL(ctx, post), nil
}

// Image returns the bytes and content type of the post's image.
func (s *Service) Image(ctx context.Context, id string) ([]byte, string, error) {
	post, err := s.find(ctx, id, msgReadFailed)
	if err != nil {
		return nil, "", err
	}
	if post.Image == "" {
		return nil, "", apperr.NotFound("Post has no image.")
	}
	data, ct, err := s.files.Download(ctx, post.Image)
	if errors.Is(err, store.ErrNotFound) {
		s.log.WithFields(logrus.Fields{"post_id": id, "image": post.Image}).Warn("post image missing from storage")
		return nil, "", apperr.NotFound("Post has no image.")
	}
	if err != nil {
		s.log.WithError(err).WithField("post_id", id).Error("error downloading post image")
		return nil, "", apperr.Internal(msgReadFailed)
	}
	return data, ct, nil
}

// Update applies in to the post. Payload validation runs before the
// ownership check, so an invalid request from a non-author is reported as
// invalid. A supplied file replaces the current image; without one the image
// is left as is.
//
// Concurrent updates of one post are not serialized: the last write wins for
// both the row and the image key.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.Post, error) {
	post, err := s.find(ctx, id, msgUpdateFailed)
	if err != nil {
		return nil, err
	}

	changes, fields := validateUpdate(in)
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}
	if !CanModify(userID, post) {
		return nil, apperr.Forbidden("You do not have permission to edit this post.")
	}

	log := s.log.WithFields(logrus.Fields{"post_id": id, "author": userID})

	updated, err := s.posts.Update(ctx, id, changes)
	if err != nil {
		return nil, s.mutationErr(log, err, msgUpdateFailed, "error updating post")
	}

	if in.File != nil {
		updated, err = s.replaceImage(ctx, log, updated, in.File)
		if err != nil {
			return nil, err
		}
	}

	log.Info("post updated")
	return s.withURL(ctx, updated), nil
}

// replaceImage stores file under a key derived from the post id, points the
// post at it and then drops the previous image.
func (s *Service) replaceImage(ctx context.Context, log logrus.FieldLogger, post *models.Post, file *Upload) (*models.Post, error) {
	id := post.ID.Hex()
	oldKey := post.Image
	newKey := StorageKey(id, file.Name)

	if err := s.files.Upload(ctx, newKey, file.Body, file.Size, contentType(file)); err != nil {
		log.WithError(err).Error("error uploading post image")
		return nil, apperr.Internal(msgUpdateFailed)
	}

	saved, err := s.posts.SetImage(ctx, id, newKey)
	if err != nil {
		if newKey != oldKey {
			if rmErr := s.files.Remove(context.WithoutCancel(ctx), newKey); rmErr != nil {
				log.WithError(rmErr).WithField("image", newKey).Error("rollback: image removal failed")
			}
		}
		return nil, s.mutationErr(log, err, msgUpdateFailed, "error attaching post image")
	}

	if oldKey != "" && oldKey != newKey {
		if err := s.files.Remove(ctx, oldKey); err != nil {
			log.WithError(err).WithField("image", oldKey).Warn("previous image not removed")
		}
	}
	return saved, nil
}

// Delete removes the post and then its image.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	post, err := s.find(ctx, id, msgDeleteFailed)
	if err != nil {
		return err
	}
	if !CanModify(userID, post) {
		return apperr.Forbidden("You do not have permission to delete this post.")
	}

	log := s.log.WithFields(logrus.Fields{"post_id": id, "author": userID})
	if err := s.posts.Delete(ctx, id); err != nil {
		return s.mutationErr(log, err, msgDeleteFailed, "error deleting post")
	}

	if post.Image != "" {
		if err := s.files.Remove(ctx, post.Image); err != nil {
			log.WithError(err).WithField("image", post.Image).Warn("image of deleted post not removed")
		}
	}

	log.WithField("title", post.Title).Info("post deleted")
	return nil
}

// find loads a post. A missing post is logged at warning level, any other
// failure at error level.
func (s *Service) find(ctx context.Context, id, failMsg string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.log.WithField("post_id", id).Warn("post not found")
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		s.log.WithError(err).WithField("post_id", id).Error("error loading post")
		return nil, apperr.Internal(failMsg)
	}
	return post, nil
}

// mutationErr converts a store error raised after the post was loaded.
// The post may have been deleted in between.
func (s *Service) mutationErr(log logrus.FieldLogger, err error, failMsg, logMsg string) error {
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("post not found")
		return apperr.NotFound(msgNotFound)
	}
	log.WithError(err).Error(logMsg)
	return apperr.Internal(failMsg)
}

func (s *Service) withURL(ctx context.Context, post *models.Post) *models.Post {
	s.fillURL(ctx, post)
	return post
}

func (s *Service) fillURL(ctx context.Context, post *models.Post) {
	if post.Image == "" {
		return
	}
	u, err := s.files.URL(ctx, post.Image)
	if err != nil {
		s.log.WithError(err).WithField("image", post.Image).Warn("image url unavailable")
		return
	}
	post.ImageURL = u
}

func validateUpdate(in UpdateInput) (models.PostChanges, map[string][]string) {
	var changes models.PostChanges
	fields := map[string][]string{}

	check := func(name string, v *string) *string {
		if v == nil {
			if !in.Partial {
				fields[name] = append(fields[name], "This field is required.")
			}
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			fields[name] = append(fields[name], "This field may not be blank.")
			return nil
		}
		return &trimmed
	}
	changes.Title = check("title", in.Title)
	changes.Content = check("content", in.Content)
	return changes, fields
}

func contentType(f *Upload) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return "application/octet-stream"
}
