package kafka

import (
	"Murmur/internal/pkg/es"
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserESRepo struct {
	indexed       []*es.UserES
	versions      []int64
	deleted       []uint64
	indexErr      error
	searchResults []*es.UserES
}

func (f *fakeUserESRepo) IndexUser(_ context.Context, user *es.UserES, version int64) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, user)
	f.versions = append(f.versions, version)
	return nil
}

func (f *fakeUserESRepo) DeleteUser(_ context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUserESRepo) SearchUsers(_ context.Context, _ string, _, _ int) ([]*es.UserES, error) {
	return f.searchResults, nil
}

func canalMessage(changeType string, ts int64, rows ...map[string]interface{}) *sarama.ConsumerMessage {
	data := make([]map[string]interface{}, 0, len(rows))
	data = append(data, rows...)
	raw, _ := json.Marshal(&CanalMessage{
		Table: "users",
		Type:  changeType,
		TS:    ts,
		Data:  data,
	})
	return &sarama.ConsumerMessage{Value: raw}
}

func TestUserHandler_Logic(t *testing.T) {
	ctx := context.Background()

	t.Run("insert indexes user with binlog version", func(t *testing.T) {
		repo := &fakeUserESRepo{}
		h := NewUserHandler(repo)

		msg := canalMessage(INSERT, 1700000000123, map[string]interface{}{
			"id":         "7",
			"username":   "alice",
			"nickname":   "爱丽丝",
			"avatar_url": "http://cdn/avatar.png",
			"is_delete":  "0",
		})
		require.NoError(t, h.logic(ctx, msg))

		require.Len(t, repo.indexed, 1)
		assert.Equal(t, uint64(7), repo.indexed[0].ID)
		assert.Equal(t, "alice", repo.indexed[0].Username)
		assert.Equal(t, "爱丽丝", repo.indexed[0].Nickname)
		assert.Equal(t, int64(1700000000123), repo.versions[0])
	})

	t.Run("update of a deactivated user removes it from the index", func(t *testing.T) {
		repo := &fakeUserESRepo{}
		h := NewUserHandler(repo)

		msg := canalMessage(UPDATE, 1, map[string]interface{}{
			"id":        "7",
			"username":  "alice",
			"is_delete": "1",
		})
		require.NoError(t, h.logic(ctx, msg))

		assert.Empty(t, repo.indexed)
		assert.Equal(t, []uint64{7}, repo.deleted)
	})

	t.Run("delete removes from index", func(t *testing.T) {
		repo := &fakeUserESRepo{}
		h := NewUserHandler(repo)

		msg := canalMessage(DELETE, 1, map[string]interface{}{"id": "42"})
		require.NoError(t, h.logic(ctx, msg))

		assert.Equal(t, []uint64{42}, repo.deleted)
	})

	t.Run("other table or empty rows are rejected", func(t *testing.T) {
		repo := &fakeUserESRepo{}
		h := NewUserHandler(repo)

		raw, _ := json.Marshal(&CanalMessage{Table: "posts", Type: INSERT})
		err := h.logic(ctx, &sarama.ConsumerMessage{Value: raw})
		assert.Error(t, err)

		raw, _ = json.Marshal(&CanalMessage{Table: "users", Type: INSERT})
		err = h.logic(ctx, &sarama.ConsumerMessage{Value: raw})
		assert.Error(t, err)
	})
}

func TestCanalValueHelpers(t *testing.T) {
	assert.Equal(t, "abc", StrToString("abc"))
	assert.Equal(t, "", StrToString(nil))
	assert.Equal(t, "", StrToString(123))

	assert.Equal(t, uint64(42), StrToUint64("42"))
	assert.Equal(t, uint64(0), StrToUint64(""))
	assert.Equal(t, uint64(0), StrToUint64("not-a-number"))
	assert.Equal(t, uint64(0), StrToUint64(nil))
}
