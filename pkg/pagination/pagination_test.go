package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorEdgeCases(t *testing.T) {
	c, err := ParseCursor("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestBuildPage(t *testing.T) {
	base := time.Now().UTC()
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Minute)}, {uuid.New(), base.Add(-2 * time.Minute)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, key)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[:1], 2, key)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.NextCursor)

	empty := BuildPage[row](nil, 2, key)
	assert.NotNil(t, empty.Items)
}
