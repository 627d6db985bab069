package store

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"librahub/internal/shared"
)

// fakeAuth is a minimal AuthState for store tests.
type fakeAuth struct {
	authenticated bool
	studentID     string
	student       *shared.Student
}

func (f *fakeAuth) Authenticated() bool { return f.authenticated }

func (f *fakeAuth) StudentID(ctx context.Context) (string, error) {
	if !f.authenticated {
		return "", errors.New("not authenticated")
	}
	return f.studentID, nil
}

func (f *fakeAuth) Student() *shared.Student { return f.student }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
