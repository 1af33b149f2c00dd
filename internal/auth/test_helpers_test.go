package auth

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jpbarro/HoW-X/internal/models"
	"github.com/jpbarro/HoW-X/internal/store"
)

type memUsers struct {
	mu        sync.Mutex
	users     []*models.User
	createErr error
}

func (m *memUsers) CreateUser(_ context.Context, username, email, hashedPw string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	u := &models.User{
		ID:        fmt.Sprintf("user-%d", len(m.users)+1),
		Username:  username,
		Email:     email,
		Password:  hashedPw,
		CreatedAt: time.Now(),
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			cp.Password = ""
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) EmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]string
	next     int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]string{}}
}

func (m *memSessions) Create(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	sid := fmt.Sprintf("sid-%d", m.next)
	m.sessions[sid] = userID
	return sid, nil
}

func (m *memSessions) Get(_ context.Context, sid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sid], nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
