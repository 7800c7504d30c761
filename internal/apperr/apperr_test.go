package apperr

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(ValidationFailed, "x"), http.StatusUnprocessableEntity},
		{New(Unauthenticated, "x"), http.StatusUnauthorized},
		{New(Unregistered, "x"), http.StatusForbidden},
		{New(StoreUnavailable, "x"), http.StatusServiceUnavailable},
		{New(Conflict, "x"), http.StatusConflict},
		{New(NotFound, "x"), http.StatusNotFound},
		{stderrs.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}

func TestWrapKeepsCodeThroughFmt(t *testing.T) {
	root := stderrs.New("root")
	err := fmt.Errorf("failed to cast vote: %w", Wrap(root, Conflict, "lost race"))

	assert.True(t, IsCode(err, Conflict))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "failed to cast vote: lost race: root", err.Error())
}

func TestFieldError(t *testing.T) {
	err := Field("title", "title is required")
	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "title", e.Field())
	assert.Equal(t, ValidationFailed, e.Code())
	assert.Equal(t, "title is required", UserMessage(err))
}

func TestUserMessageNeverEmpty(t *testing.T) {
	for c := Unknown; c <= NotFound; c++ {
		assert.NotEmpty(t, UserMessage(New(c, "")), c.String())
	}
	assert.NotEmpty(t, UserMessage(stderrs.New("foreign")))
}

func TestFromPostgres(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"no rows", pgx.ErrNoRows, NotFound},
		{"serialization", &pgconn.PgError{Code: "40001"}, Conflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, Conflict},
		{"fk", &pgconn.PgError{Code: "23503"}, ValidationFailed},
		{"startup", &pgconn.PgError{Code: "57P03"}, StoreUnavailable},
		{"syntax", &pgconn.PgError{Code: "42601"}, Unknown},
		{"dial", stderrs.New("dial tcp: connection refused"), StoreUnavailable},
		{"deadline", context.DeadlineExceeded, StoreUnavailable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, CodeOf(FromPostgres(c.err, "op")))
		})
	}

	assert.NoError(t, FromPostgres(nil, "op"))

	coded := New(ValidationFailed, "listing is closed")
	assert.Same(t, coded, FromPostgres(coded, "op"))
}
