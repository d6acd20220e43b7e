package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/runway/service/dao"
)

type record struct {
	ID     string
	Runway string
}

func newStore() *MemoryStore[string, record] {
	return NewMemoryStore[string, record](
		func(r *record) string { return r.ID },
		func(r *record, name string) (string, bool) {
			if name == "runway" {
				return r.Runway, true
			}
			return "", false
		},
	)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	assert.True(t, errors.Is(s.Save(ctx, nil), dao.ErrNilEntity))
	assert.True(t, errors.Is(s.Save(ctx, &record{}), dao.ErrInvalidID))

	assert.NoError(t, s.Save(ctx, &record{ID: "1", Runway: "Runway A"}))
	assert.NoError(t, s.Save(ctx, &record{ID: "2", Runway: "Runway B"}))
	assert.NoError(t, s.Save(ctx, &record{ID: "3", Runway: "Runway A"}))

	loaded, err := s.Load(ctx, "2")
	assert.NoError(t, err)
	assert.Equal(t, "Runway B", loaded.Runway)
	_, err = s.Load(ctx, "missing")
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	all, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(all))

	onA, err := s.List(ctx, dao.NewParameter("runway", "Runway A"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(onA))

	either, err := s.List(ctx, dao.NewParameter("runway", "Runway A", "Runway B"))
	assert.NoError(t, err)
	assert.Len(t, either, 3)

	none, err := s.List(ctx, dao.NewParameter("unknown", "x"))
	assert.NoError(t, err)
	assert.Empty(t, none)

	assert.NoError(t, s.Delete(ctx, "1"))
	all, _ = s.List(ctx)
	assert.Equal(t, []string{"2", "3"}, ids(all))
}

func ids(records []*record) []string {
	var ret []string
	for _, r := range records {
		ret = append(ret, r.ID)
	}
	return ret
}
