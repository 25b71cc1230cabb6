package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestPeerKey(t *testing.T) {
	// 小 ID 在前，双方顺序无关
	assert.Equal(t, "1_2", PeerKey(1, 2))
	assert.Equal(t, "1_2", PeerKey(2, 1))
	assert.Equal(t, "3_10", PeerKey(10, 3))
}

func newMockRepo(t *testing.T) (ConversationRepo, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return NewConversationRepo(gdb), mock
}

func emptyConversationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "peer_key", "last_message_id", "last_msg_text", "last_msg_type",
		"last_sender_id", "last_message_at", "message_count", "created_at", "updated_at",
	})
}

func conversationRows(id uint64, peerKey string) *sqlmock.Rows {
	now := time.Now()
	return emptyConversationRows().AddRow(id, peerKey, nil, "", "text", 0, now, 0, now, now)
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - existing conversation", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("SELECT \\* FROM `conversations` WHERE peer_key = \\?").
			WithArgs("1_2", 1).
			WillReturnRows(conversationRows(7, "1_2"))

		conv, err := repo.GetOrCreate(ctx, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), conv.ID)
		assert.Equal(t, "1_2", conv.PeerKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("happy path - creates conversation and members", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("SELECT \\* FROM `conversations` WHERE peer_key = \\?").
			WithArgs("1_2", 1).
			WillReturnRows(emptyConversationRows())
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `conversations`").
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectExec("INSERT INTO `conversation_members`").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO `conversation_members`").
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		conv, err := repo.GetOrCreate(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), conv.ID)
		assert.Equal(t, "1_2", conv.PeerKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique index conflict falls back to reselect", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		// 并发首发：查不到，插入撞唯一索引，重查拿到对方刚建的那条
		mock.ExpectQuery("SELECT \\* FROM `conversations` WHERE peer_key = \\?").
			WithArgs("1_2", 1).
			WillReturnRows(emptyConversationRows())
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `conversations`").
			WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry '1_2' for key 'peer_key'"})
		mock.ExpectRollback()
		mock.ExpectQuery("SELECT \\* FROM `conversations` WHERE peer_key = \\?").
			WithArgs("1_2", 1).
			WillReturnRows(conversationRows(42, "1_2"))

		conv, err := repo.GetOrCreate(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), conv.ID)
		assert.Equal(t, "1_2", conv.PeerKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
