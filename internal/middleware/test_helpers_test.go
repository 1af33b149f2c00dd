package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jpbarro/HoW-X/internal/auth"
)

type stubSessions map[string]string

func (s stubSessions) Create(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s stubSessions) Get(_ context.Context, sid string) (string, error) {
	if sid == "broken" {
		return "", errors.New("redis: connection pool timeout")
	}
	return s[sid], nil
}

func (s stubSessions) Delete(context.Context, string) error { return nil }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// echoUser writes the user id seen by the handler.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(auth.UserID(r.Context())))
})
