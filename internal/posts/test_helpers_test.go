package posts

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jpbarro/HoW-X/internal/models"
	"github.com/jpbarro/HoW-X/internal/store"
)

var errBackend = errors.New("backend unavailable")

type memPosts struct {
	mu    sync.Mutex
	posts map[string]models.Post
	clock time.Time

	insertErr   error
	getErr      error
	updateErr   error
	setImageErr error
	deleteErr   error
}

func newMemPosts() *memPosts {
	return &memPosts{posts: map[string]models.Post{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memPosts) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memPosts) Insert(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	post.ID = primitive.NewObjectID()
	post.CreatedAt = m.tick()
	post.UpdatedAt = post.CreatedAt
	m.posts[post.ID.Hex()] = *post
	return nil
}

func (m *memPosts) List(context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []models.Post
	for _, p := range m.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPosts) GetByID(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memPosts) Update(_ context.Context, id string, changes models.PostChanges) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if changes.Title != nil {
		p.Title = *changes.Title
	}
	if changes.Content != nil {
		p.Content = *changes.Content
	}
	p.UpdatedAt = m.tick()
	m.posts[id] = p
	return &p, nil
}

func (m *memPosts) SetImage(_ context.Context, id, key string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setImageErr != nil {
		return nil, m.setImageErr
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Image = key
	p.UpdatedAt = m.tick()
	m.posts[id] = p
	return &p, nil
}

func (m *memPosts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

func (m *memPosts) get(id string) (models.Post, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	return p, ok
}

// seed stores a post directly, bypassing Insert's error toggle.
func (m *memPosts) seed(author, title, image string) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Post{
		ID:      primitive.NewObjectID(),
		Title:   title,
		Content: "content of " + title,
		Image:   image,
		Author:  author,
	}
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	m.posts[p.ID.Hex()] = p
	return p
}

type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	uploadErr error
	removeErr error
	urlErr    error
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memFiles) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memFiles) Download(_ context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return data, m.types[key], nil
}

func (m *memFiles) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memFiles) URL(_ context.Context, key string) (string, error) {
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return "https://files.test/" + key, nil
}

func (m *memFiles) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *memFiles) put(key, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = []byte(data)
	m.types[key] = "image/jpeg"
}

type fixture struct {
	posts *memPosts
	files *memFiles
	hook  *logtest.Hook
	svc   *Service
}

func newFixture() *fixture {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	posts := newMemPosts()
	files := newMemFiles()
	return &fixture{
		posts: posts,
		files: files,
		hook:  hook,
		svc:   NewService(posts, files, logger),
	}
}

// levels returns the levels of all entries logged with msg.
func (f *fixture) levels(msg string) []logrus.Level {
	var out []logrus.Level
	for _, e := range f.hook.AllEntries() {
		if e.Message == msg {
			out = append(out, e.Level)
		}
	}
	return out
}

func upload(name, body string) *Upload {
	return &Upload{Name: name, Size: int64(len(body)), ContentType: "image/jpeg", Body: strings.NewReader(body)}
}

func ptr(s string) *string { return &s }
