package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
		expose bool
	}{
		{CodeValidation, http.StatusBadRequest, true},
		{CodeUnauthorized, http.StatusUnauthorized, true},
		{CodeForbidden, http.StatusForbidden, true},
		{CodeNotFound, http.StatusNotFound, true},
		{CodeConflict, http.StatusConflict, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, true},
		{CodeRateLimit, http.StatusTooManyRequests, true},
		{CodeInternal, http.StatusInternalServerError, false},
		{CodeDependency, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, tt.code)
		assert.Equal(t, tt.expose, meta.ExposeMessage, tt.code)
	}
}

func TestDependencyIsDistinctFromForbidden(t *testing.T) {
	dep := MetadataFor(CodeDependency)
	forbidden := MetadataFor(CodeForbidden)
	assert.NotEqual(t, dep.HTTPStatus, forbidden.HTTPStatus)
	assert.Equal(t, "service unavailable", dep.PublicMessage)
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestWrapAndAs(t *testing.T) {
	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "load trip")
	outer := fmt.Errorf("handler: %w", wrapped)

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, CodeDependency, typed.Code())
	assert.Equal(t, "load trip", typed.Message())
	assert.True(t, stdErrors.Is(outer, cause))
	assert.True(t, IsCode(outer, CodeDependency))
	assert.Equal(t, CodeInternal, CodeOf(cause))
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeNotFound, nil, "trip not found")
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "NOT_FOUND: trip not found", err.Error())
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Equal(t, "", e.Message())
	assert.Nil(t, e.WithDetails("x"))
}

func TestDumpExtractsPgDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "trip_members_trip_id_user_id_key", TableName: "trip_members"}
	err := Wrap(CodeConflict, pgErr, "insert member")

	dump := Dump(err)
	assert.Equal(t, CodeConflict, dump.Code)
	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "trip_members", dump.PGTable)
	assert.Len(t, dump.Chain, 2)

	fields := dump.Fields()
	assert.Equal(t, "trip_members_trip_id_user_id_key", fields["pg_constraint"])
	_, hasColumn := fields["pg_column"]
	assert.False(t, hasColumn)
}
