package service

import (
	"Murmur/internal/api/dto"
	"Murmur/internal/model"
	"Murmur/internal/pkg/consts"
	"Murmur/internal/pkg/mongo"
	"Murmur/internal/realtime"
	"Murmur/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- 测试替身 ----

type pushedEvent struct {
	UserID uint64
	Event  string
	Data   interface{}
}

type fakePusher struct {
	online map[uint64]bool
	pushes []pushedEvent
}

func newFakePusher(onlineIDs ...uint64) *fakePusher {
	online := make(map[uint64]bool)
	for _, id := range onlineIDs {
		online[id] = true
	}
	return &fakePusher{online: online}
}

func (f *fakePusher) PushToUser(userID uint64, event string, data interface{}) bool {
	if !f.online[userID] {
		return false
	}
	f.pushes = append(f.pushes, pushedEvent{UserID: userID, Event: event, Data: data})
	return true
}

func (f *fakePusher) IsOnline(userID uint64) bool { return f.online[userID] }

func (f *fakePusher) eventsFor(userID uint64, event string) []pushedEvent {
	var res []pushedEvent
	for _, p := range f.pushes {
		if p.UserID == userID && p.Event == event {
			res = append(res, p)
		}
	}
	return res
}

type fakeUserRepo struct {
	users map[uint64]*model.User
}

func newFakeUserRepo(ids ...uint64) *fakeUserRepo {
	users := make(map[uint64]*model.User)
	for _, id := range ids {
		users[id] = &model.User{
			ID:       id,
			Username: fmt.Sprintf("user%d", id),
			Nickname: fmt.Sprintf("昵称%d", id),
		}
	}
	return &fakeUserRepo{users: users}
}

func (f *fakeUserRepo) GetUserById(_ context.Context, id uint64) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetUserByIds(_ context.Context, ids []uint64) ([]*model.User, error) {
	res := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListUsersExcept(_ context.Context, excludeID uint64) ([]*model.User, error) {
	var res []*model.User
	for _, u := range f.users {
		if u.ID != excludeID {
			res = append(res, u)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, _ *model.User) error { return nil }

type fakeConvRepo struct {
	nextID   uint64
	byKey    map[string]*model.Conversation
	unread   map[string]uint64 // "convID_userID" -> unread
	members  map[uint64][]uint64
	applyErr error
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		nextID:  1,
		byKey:   make(map[string]*model.Conversation),
		unread:  make(map[string]uint64),
		members: make(map[uint64][]uint64),
	}
}

func (f *fakeConvRepo) memberKey(convID, userID uint64) string {
	return fmt.Sprintf("%d_%d", convID, userID)
}

func (f *fakeConvRepo) GetOrCreate(_ context.Context, userA, userB uint64) (*model.Conversation, error) {
	key := repository.PeerKey(userA, userB)
	if conv, ok := f.byKey[key]; ok {
		return conv, nil
	}
	conv := &model.Conversation{
		ID:            f.nextID,
		PeerKey:       key,
		LastMsgType:   consts.MsgTypeText,
		LastMessageAt: time.Now(),
	}
	f.nextID++
	f.byKey[key] = conv
	f.members[conv.ID] = []uint64{userA, userB}
	return conv, nil
}

func (f *fakeConvRepo) GetConversation(_ context.Context, convID uint64) (*model.Conversation, error) {
	for _, conv := range f.byKey {
		if conv.ID == convID {
			return conv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConvRepo) GetConversationByPeerKey(_ context.Context, peerKey string) (*model.Conversation, error) {
	if conv, ok := f.byKey[peerKey]; ok {
		return conv, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConvRepo) IsMember(_ context.Context, convID uint64, userID uint64) (bool, error) {
	for _, id := range f.members[convID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConvRepo) ApplyNewMessage(_ context.Context, convID uint64, msgID string, preview string, msgType string, senderID, receiverID uint64) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	for _, conv := range f.byKey {
		if conv.ID == convID {
			id := msgID
			conv.LastMessageID = &id
			conv.LastMsgText = preview
			conv.LastMsgType = msgType
			conv.LastSenderID = senderID
			conv.LastMessageAt = time.Now()
			conv.MessageCount++
		}
	}
	f.unread[f.memberKey(convID, receiverID)]++
	f.unread[f.memberKey(convID, senderID)] = 0
	return nil
}

func (f *fakeConvRepo) ResetUnread(_ context.Context, convID, userID uint64) error {
	f.unread[f.memberKey(convID, userID)] = 0
	return nil
}

func (f *fakeConvRepo) SetLastMessage(_ context.Context, convID uint64, msgID *string, preview string, msgType string, senderID uint64, at time.Time) error {
	for _, conv := range f.byKey {
		if conv.ID == convID {
			conv.LastMessageID = msgID
			conv.LastMsgText = preview
			conv.LastMsgType = msgType
			conv.LastSenderID = senderID
			conv.LastMessageAt = at
		}
	}
	return nil
}

func (f *fakeConvRepo) GetUserConversationMemList(_ context.Context, userID uint64) ([]*model.ConversationMember, error) {
	var res []*model.ConversationMember
	for _, conv := range f.byKey {
		for _, id := range f.members[conv.ID] {
			if id == userID {
				res = append(res, &model.ConversationMember{
					ConversationID: conv.ID,
					UserID:         userID,
					UnreadCount:    f.unread[f.memberKey(conv.ID, userID)],
					Conversation:   *conv,
				})
			}
		}
	}
	return res, nil
}

func (f *fakeConvRepo) GetTotalUnreadCount(_ context.Context, userID uint64) (int64, error) {
	var total int64
	for _, conv := range f.byKey {
		total += int64(f.unread[f.memberKey(conv.ID, userID)])
	}
	return total, nil
}

type fakeMessageRepo struct {
	nextID   int
	messages []*mongo.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1}
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *mongo.Message) error {
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", f.nextID)
		f.nextID++
	}
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.ReadBy == nil {
		msg.ReadBy = []uint64{}
	}
	if msg.DeliveredTo == nil {
		msg.DeliveredTo = []uint64{}
	}
	if msg.DeletedFor == nil {
		msg.DeletedFor = []uint64{}
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id string) (*mongo.Message, error) {
	for _, m := range f.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, convID uint64, page, limit int) ([]*mongo.Message, error) {
	var all []*mongo.Message
	for _, m := range f.messages {
		if m.ConversationID == convID {
			all = append(all, m)
		}
	}
	// 新的在前
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, convID, readerID uint64) (int64, error) {
	var count int64
	for _, m := range f.messages {
		if m.ConversationID == convID && m.SenderID != readerID && !m.ReadByContains(readerID) {
			m.ReadBy = append(m.ReadBy, readerID)
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageRepo) AddReadBy(_ context.Context, id string, userID uint64) (bool, error) {
	for _, m := range f.messages {
		if m.ID == id {
			if m.ReadByContains(userID) {
				return false, nil
			}
			m.ReadBy = append(m.ReadBy, userID)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessageRepo) AddDeletedFor(_ context.Context, id string, userID uint64) error {
	for _, m := range f.messages {
		if m.ID == id && !m.DeletedForViewer(userID) {
			m.DeletedFor = append(m.DeletedFor, userID)
		}
	}
	return nil
}

func (f *fakeMessageRepo) MarkDeletedForEveryone(_ context.Context, id string, memberIDs []uint64) error {
	for _, m := range f.messages {
		if m.ID == id {
			m.DeletedForEveryone = true
			m.DeletedFor = memberIDs
		}
	}
	return nil
}

func (f *fakeMessageRepo) LatestVisible(_ context.Context, convID uint64, excludeID string) (*mongo.Message, error) {
	var latest *mongo.Message
	for _, m := range f.messages {
		if m.ConversationID != convID || m.ID == excludeID || m.DeletedForEveryone {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	return latest, nil
}

type chatFixture struct {
	svc      ChatService
	pusher   *fakePusher
	convRepo *fakeConvRepo
	msgRepo  *fakeMessageRepo
	userRepo *fakeUserRepo
}

func newChatFixture(onlineIDs ...uint64) *chatFixture {
	pusher := newFakePusher(onlineIDs...)
	convRepo := newFakeConvRepo()
	msgRepo := newFakeMessageRepo()
	userRepo := newFakeUserRepo(1, 2, 3)
	return &chatFixture{
		svc:      NewChatService(convRepo, userRepo, msgRepo, pusher),
		pusher:   pusher,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

func (f *chatFixture) send(t *testing.T, senderID, receiverID uint64, text string) *dto.MessageDTO {
	t.Helper()
	res, err := f.svc.SendMessage(context.Background(), senderID, &dto.SendMessageReq{
		ReceiverID: receiverID,
		Type:       consts.MsgTypeText,
		Text:       text,
	})
	require.NoError(t, err)
	return res
}

// ---- 用例 ----

func TestChatService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - receiver online", func(t *testing.T) {
		f := newChatFixture(1, 2)

		res, err := f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 2, Text: "你好"})
		require.NoError(t, err)
		require.NotEmpty(t, res.ID)
		assert.Equal(t, uint64(1), res.SenderID)
		assert.Equal(t, uint64(2), res.ReceiverID)
		assert.ElementsMatch(t, []uint64{1, 2}, res.DeliveredTo)
		assert.Contains(t, res.ReadBy, uint64(1))

		// 返回结果携带双方摘要
		require.NotNil(t, res.Sender)
		assert.Equal(t, "user1", res.Sender.Username)
		require.NotNil(t, res.Receiver)
		assert.Equal(t, uint64(2), res.Receiver.ID)

		// 接收方收到 newMessage，发送方收到送达回执
		require.Len(t, f.pusher.eventsFor(2, realtime.EventNewMessage), 1)
		require.Len(t, f.pusher.eventsFor(1, realtime.EventMessageDelivered), 1)

		// 会话预览与未读计数
		conv, err := f.convRepo.GetConversationByPeerKey(ctx, "1_2")
		require.NoError(t, err)
		assert.Equal(t, "你好", conv.LastMsgText)
		assert.Equal(t, uint64(1), f.convRepo.unread[f.convRepo.memberKey(conv.ID, 2)])
		assert.Equal(t, uint64(0), f.convRepo.unread[f.convRepo.memberKey(conv.ID, 1)])
	})

	t.Run("receiver offline - delivered to sender only, no push", func(t *testing.T) {
		f := newChatFixture(1)

		res := f.send(t, 1, 2, "在吗")
		assert.Equal(t, []uint64{1}, res.DeliveredTo)
		assert.Empty(t, f.pusher.eventsFor(2, realtime.EventNewMessage))
		assert.Empty(t, f.pusher.eventsFor(1, realtime.EventMessageDelivered))
	})

	t.Run("both directions share one conversation", func(t *testing.T) {
		f := newChatFixture()

		first := f.send(t, 1, 2, "a")
		second := f.send(t, 2, 1, "b")
		assert.Equal(t, first.ConversationID, second.ConversationID)
	})

	t.Run("explicit conversation id must exist and include the sender", func(t *testing.T) {
		f := newChatFixture()
		first := f.send(t, 1, 2, "a")

		res, err := f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{
			ReceiverID:     2,
			ConversationID: first.ConversationID,
			Text:           "b",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ConversationID, res.ConversationID)

		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{
			ReceiverID:     2,
			ConversationID: 404,
			Text:           "b",
		})
		assert.ErrorIs(t, err, ErrConversationNotFound)

		_, err = f.svc.SendMessage(ctx, 3, &dto.SendMessageReq{
			ReceiverID:     2,
			ConversationID: first.ConversationID,
			Text:           "b",
		})
		assert.ErrorIs(t, err, ErrNotConversationMember)
	})

	t.Run("sad path - validation", func(t *testing.T) {
		f := newChatFixture()

		_, err := f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{Text: "x"})
		assert.ErrorIs(t, err, ErrReceiverRequired)

		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 1, Text: "x"})
		assert.ErrorIs(t, err, ErrMessageToSelf)

		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 2, Text: "   "})
		assert.ErrorIs(t, err, ErrMessageEmpty)

		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 99, Text: "x"})
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 2, Type: "sticker", Text: "x"})
		assert.ErrorIs(t, err, ErrParamInvalid)

		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 2, Type: consts.MsgTypeGif})
		assert.ErrorIs(t, err, ErrMessageEmpty)

		// GIF 只信任 Giphy 域名
		_, err = f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{
			ReceiverID: 2,
			Type:       consts.MsgTypeGif,
			GifURL:     "https://evil.example.com/abc.gif",
		})
		assert.ErrorIs(t, err, ErrParamInvalid)
	})

	t.Run("sad path - conversation update failure fails the send", func(t *testing.T) {
		f := newChatFixture(1, 2)
		f.convRepo.applyErr = errors.New("mysql has gone away")

		_, err := f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{ReceiverID: 2, Text: "x"})
		require.Error(t, err)

		// 失败的发送不得推送事件，未读数与会话预览保持原样
		assert.Empty(t, f.pusher.pushes)
		conv, convErr := f.convRepo.GetConversationByPeerKey(ctx, "1_2")
		require.NoError(t, convErr)
		assert.Nil(t, conv.LastMessageID)
		assert.Equal(t, uint64(0), f.convRepo.unread[f.convRepo.memberKey(conv.ID, 2)])
	})

	t.Run("gif message", func(t *testing.T) {
		f := newChatFixture()

		res, err := f.svc.SendMessage(ctx, 1, &dto.SendMessageReq{
			ReceiverID: 2,
			Type:       consts.MsgTypeGif,
			GifURL:     "https://media.giphy.com/abc.gif",
		})
		require.NoError(t, err)
		assert.Equal(t, consts.MsgTypeGif, res.Type)

		conv, err := f.convRepo.GetConversationByPeerKey(ctx, "1_2")
		require.NoError(t, err)
		assert.Equal(t, "[GIF]", conv.LastMsgText)
	})
}

func TestChatService_GetMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("ascending order and read marking", func(t *testing.T) {
		f := newChatFixture(1, 2)

		first := f.send(t, 1, 2, "第一条")
		f.send(t, 1, 2, "第二条")
		f.pusher.pushes = nil

		res, err := f.svc.GetMessages(ctx, 2, &dto.GetMessagesReq{ConversationID: first.ConversationID})
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "第一条", res[0].Text)
		assert.Equal(t, "第二条", res[1].Text)

		// 发送方收到每条消息的已读回执，未读数清零
		assert.Len(t, f.pusher.eventsFor(1, realtime.EventMessageRead), 2)
		assert.Equal(t, uint64(0), f.convRepo.unread[f.convRepo.memberKey(first.ConversationID, 2)])

		// 再次拉取不重复发回执
		f.pusher.pushes = nil
		_, err = f.svc.GetMessages(ctx, 2, &dto.GetMessagesReq{ConversationID: first.ConversationID})
		require.NoError(t, err)
		assert.Empty(t, f.pusher.eventsFor(1, realtime.EventMessageRead))
	})

	t.Run("sad path - unknown conversation or not a member", func(t *testing.T) {
		f := newChatFixture()
		msg := f.send(t, 1, 2, "私聊")

		_, err := f.svc.GetMessages(ctx, 1, &dto.GetMessagesReq{ConversationID: 404})
		assert.ErrorIs(t, err, ErrConversationNotFound)

		_, err = f.svc.GetMessages(ctx, 3, &dto.GetMessagesReq{ConversationID: msg.ConversationID})
		assert.ErrorIs(t, err, ErrNotConversationMember)
	})

	t.Run("tombstoned messages render as placeholders for the affected viewer only", func(t *testing.T) {
		f := newChatFixture(1, 2)

		m1 := f.send(t, 1, 2, "单方删除")
		m2 := f.send(t, 1, 2, "全员撤回")
		f.send(t, 1, 2, "还在")

		require.NoError(t, f.svc.DeleteForMe(ctx, 2, m1.ID))
		require.NoError(t, f.svc.DeleteForEveryone(ctx, 1, m2.ID))

		// 删除方视角：两条都是占位符，行本身保留
		res, err := f.svc.GetMessages(ctx, 2, &dto.GetMessagesReq{ConversationID: m1.ConversationID})
		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.True(t, res[0].Deleted)
		assert.False(t, res[0].DeletedForEveryone)
		assert.Equal(t, consts.DeletedPlaceholder, res[0].Text)
		assert.True(t, res[1].Deleted)
		assert.True(t, res[1].DeletedForEveryone)
		assert.Equal(t, consts.DeletedPlaceholder, res[1].Text)
		assert.False(t, res[2].Deleted)
		assert.Equal(t, "还在", res[2].Text)

		// 对方视角：单方删除不影响，全员撤回仍是占位符
		res, err = f.svc.GetMessages(ctx, 1, &dto.GetMessagesReq{ConversationID: m1.ConversationID})
		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.False(t, res[0].Deleted)
		assert.Equal(t, "单方删除", res[0].Text)
		assert.True(t, res[1].Deleted)
	})
}

func TestChatService_MarkMessageAsRead(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path and idempotence", func(t *testing.T) {
		f := newChatFixture(1, 2)
		msg := f.send(t, 1, 2, "已读测试")
		f.pusher.pushes = nil

		res, err := f.svc.MarkMessageAsRead(ctx, 2, msg.ID)
		require.NoError(t, err)
		assert.Contains(t, res.ReadBy, uint64(2))
		require.Len(t, f.pusher.eventsFor(1, realtime.EventMessageRead), 1)

		// 二次标记幂等，不再推送
		f.pusher.pushes = nil
		_, err = f.svc.MarkMessageAsRead(ctx, 2, msg.ID)
		require.NoError(t, err)
		assert.Empty(t, f.pusher.eventsFor(1, realtime.EventMessageRead))
	})

	t.Run("sad path", func(t *testing.T) {
		f := newChatFixture(1, 2)
		msg := f.send(t, 1, 2, "x")

		_, err := f.svc.MarkMessageAsRead(ctx, 2, "missing")
		assert.ErrorIs(t, err, ErrMessageNotFound)

		// 发送者不能替接收者标记
		_, err = f.svc.MarkMessageAsRead(ctx, 1, msg.ID)
		assert.ErrorIs(t, err, ErrNotMessageReceiver)
	})
}

func TestChatService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete for me - member only, notifies peer", func(t *testing.T) {
		f := newChatFixture(1, 2)
		msg := f.send(t, 1, 2, "x")
		f.pusher.pushes = nil

		require.NoError(t, f.svc.DeleteForMe(ctx, 2, msg.ID))
		assert.Len(t, f.pusher.eventsFor(1, realtime.EventMessageDeletedForMe), 1)

		err := f.svc.DeleteForMe(ctx, 3, msg.ID)
		assert.ErrorIs(t, err, ErrNotConversationMember)
	})

	t.Run("delete for everyone - sender only", func(t *testing.T) {
		f := newChatFixture(1, 2)
		msg := f.send(t, 1, 2, "x")

		err := f.svc.DeleteForEveryone(ctx, 2, msg.ID)
		assert.ErrorIs(t, err, ErrNotMessageSender)

		require.NoError(t, f.svc.DeleteForEveryone(ctx, 1, msg.ID))
		stored, _ := f.msgRepo.GetByID(ctx, msg.ID)
		assert.True(t, stored.DeletedForEveryone)
		assert.ElementsMatch(t, []uint64{1, 2}, stored.DeletedFor)
		assert.Len(t, f.pusher.eventsFor(2, realtime.EventMessageDeletedForEveryone), 1)
	})

	t.Run("last message repair falls back to previous message", func(t *testing.T) {
		f := newChatFixture(1, 2)
		f.send(t, 1, 2, "保留")
		// 确保两条消息时间有先后
		time.Sleep(2 * time.Millisecond)
		last := f.send(t, 1, 2, "撤回")

		require.NoError(t, f.svc.DeleteForEveryone(ctx, 1, last.ID))

		conv, err := f.convRepo.GetConversationByPeerKey(ctx, "1_2")
		require.NoError(t, err)
		assert.Equal(t, "保留", conv.LastMsgText)
	})

	t.Run("last message repair clears preview when nothing left", func(t *testing.T) {
		f := newChatFixture(1, 2)
		only := f.send(t, 1, 2, "唯一")

		require.NoError(t, f.svc.DeleteForEveryone(ctx, 1, only.ID))

		conv, err := f.convRepo.GetConversationByPeerKey(ctx, "1_2")
		require.NoError(t, err)
		assert.Nil(t, conv.LastMessageID)
		assert.Empty(t, conv.LastMsgText)
	})
}

func TestChatService_GetOrCreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - idempotent", func(t *testing.T) {
		f := newChatFixture()

		first, err := f.svc.GetOrCreateConversation(ctx, 1, 2)
		require.NoError(t, err)
		second, err := f.svc.GetOrCreateConversation(ctx, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, first.ConversationID, second.ConversationID)
	})

	t.Run("sad path", func(t *testing.T) {
		f := newChatFixture()

		_, err := f.svc.GetOrCreateConversation(ctx, 1, 1)
		assert.ErrorIs(t, err, ErrMessageToSelf)

		_, err = f.svc.GetOrCreateConversation(ctx, 1, 99)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestChatService_GetContacts(t *testing.T) {
	ctx := context.Background()

	f := newChatFixture(2)
	f.send(t, 1, 2, "嗨")
	f.send(t, 3, 1, "哈喽")

	contacts, err := f.svc.GetContacts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	byID := make(map[uint64]*dto.ContactDTO)
	for _, c := range contacts {
		byID[c.UserID] = c
	}

	// 用户2在线，会话最后一条是我发的，未读归零
	require.Contains(t, byID, uint64(2))
	assert.True(t, byID[2].Online)
	assert.Equal(t, "嗨", byID[2].LastMsgText)
	assert.Equal(t, uint64(0), byID[2].UnreadCount)

	// 用户3离线，给我发了一条未读
	require.Contains(t, byID, uint64(3))
	assert.False(t, byID[3].Online)
	assert.Equal(t, "哈喽", byID[3].LastMsgText)
	assert.Equal(t, uint64(1), byID[3].UnreadCount)
}

func TestChatService_GetUnreadTotal(t *testing.T) {
	ctx := context.Background()

	f := newChatFixture()

	res, err := f.svc.GetUnreadTotal(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)

	// 两个会话各自累积未读，角标取总和
	f.send(t, 1, 2, "一")
	f.send(t, 1, 2, "二")
	f.send(t, 3, 2, "三")

	res, err = f.svc.GetUnreadTotal(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
}

func TestPreviewText(t *testing.T) {
	assert.Equal(t, "[图片]", previewText(&mongo.Message{Type: consts.MsgTypeImage}))
	assert.Equal(t, "[GIF]", previewText(&mongo.Message{Type: consts.MsgTypeGif}))

	short := previewText(&mongo.Message{Type: consts.MsgTypeText, Text: "短消息"})
	assert.Equal(t, "短消息", short)

	// 多字节文本按字符数截断，结果必须仍是合法 UTF-8
	long := previewText(&mongo.Message{Type: consts.MsgTypeText, Text: strings.Repeat("汉", 130)})
	assert.Equal(t, strings.Repeat("汉", 120), long)
	assert.True(t, utf8.ValidString(long))
}
