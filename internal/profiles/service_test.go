package profiles

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withmetravel/withme-backend/pkg/db/dbtest"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestEnsureIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := uuid.New()

	first, err := svc.Ensure(ctx, id, " Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", first.Email)

	second, err := svc.Ensure(ctx, id, "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", second.Email, "existing rows are not overwritten")
	assert.False(t, second.IsAdmin)
}

func TestEnsureRequiresSubject(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ensure(context.Background(), uuid.Nil, "a@b.c")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateMeAppliesOnlyPresentFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := uuid.New()
	_, err := svc.Ensure(ctx, id, "a@b.c")
	require.NoError(t, err)

	var input UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Ana","avatar_url":"https://img/a.png"}`), &input))
	updated, err := svc.UpdateMe(ctx, id, input)
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "Ana", *updated.Name)

	input = UpdateInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"avatar_url":null}`), &input))
	updated, err = svc.UpdateMe(ctx, id, input)
	require.NoError(t, err)
	assert.Nil(t, updated.AvatarURL)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "Ana", *updated.Name)

	input = UpdateInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"  "}`), &input))
	_, err = svc.UpdateMe(ctx, id, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetMissingProfile(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
