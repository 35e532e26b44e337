package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationResult_Succeeded(t *testing.T) {
	r := Succeeded(MigrationReport{FromVersion: 1, ToVersion: 2, HadVersion: true, Changed: true})

	assert.True(t, r.OK())
	assert.Equal(t, "Migration successful", r.String())
	assert.Equal(t, StageSucceeded, r.Stage)
	assert.Equal(t, ErrorKind(""), r.Kind())
	assert.Equal(t, uint(2), r.Report.ToVersion)
}

func TestMigrationResult_Failed(t *testing.T) {
	cause := NewError(KindConnection, "failed to connect to database", errors.New("dial tcp: connection refused"))

	r := Failed(StageConnecting, cause)

	assert.False(t, r.OK())
	assert.Equal(t, "Migration failed: failed to connect to database: dial tcp: connection refused", r.String())
	assert.Equal(t, StageConnecting, r.Stage)
	assert.Equal(t, KindConnection, r.Kind())
	assert.Nil(t, r.Report)
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(KindSecretFetch, "failed to fetch secret", errors.New("boom")))

	assert.True(t, errors.Is(err, ErrSecretFetch))
	assert.False(t, errors.Is(err, ErrMalformedSecret))
	assert.Equal(t, KindSecretFetch, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "message only", err: NewError(KindMalformedSecret, "password field not found in secret", nil), want: "password field not found in secret"},
		{name: "message and cause", err: NewError(KindConnection, "ping database", errors.New("timeout")), want: "ping database: timeout"},
		{name: "cause only", err: NewError(KindMigrationEngine, "", errors.New("Dirty database version 3")), want: "Dirty database version 3"},
		{name: "kind only", err: &Error{Kind: KindConnection}, want: "connection_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
