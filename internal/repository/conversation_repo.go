package repository

import (
	"Murmur/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	GetOrCreate(ctx context.Context, userA, userB uint64) (*model.Conversation, error)
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error)
	IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error)

	ApplyNewMessage(ctx context.Context, convID uint64, msgID string, preview string, msgType string, senderID, receiverID uint64) error
	ResetUnread(ctx context.Context, convID, userID uint64) error
	SetLastMessage(ctx context.Context, convID uint64, msgID *string, preview string, msgType string, senderID uint64, at time.Time) error

	GetUserConversationMemList(ctx context.Context, userID uint64) ([]*model.ConversationMember, error)
	GetTotalUnreadCount(ctx context.Context, userID uint64) (int64, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// PeerKey 单聊会话唯一标识，小ID在前
func PeerKey(userA, userB uint64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d_%d", userA, userB)
}

// GetOrCreate 按 PeerKey 查找会话，不存在则创建
// 并发首次互发时依赖唯一索引兜底，冲突后重查即可
func (s *conversationRepoImpl) GetOrCreate(ctx context.Context, userA, userB uint64) (*model.Conversation, error) {
	peerKey := PeerKey(userA, userB)

	conv, err := s.GetConversationByPeerKey(ctx, peerKey)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = &model.Conversation{
		PeerKey:       peerKey,
		LastMessageAt: time.Now(),
	}
	createErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, uid := range []uint64{userA, userB} {
			m := &model.ConversationMember{
				ConversationID: conv.ID,
				UserID:         uid,
				JoinedAt:       time.Now(),
			}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if createErr == nil {
		return conv, nil
	}

	// 唯一索引冲突：另一端刚建完，重查拿到同一条
	return s.GetConversationByPeerKey(ctx, peerKey)
}

// GetConversation 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	return &conv, err
}

// GetConversationByPeerKey 根据会话标识获取会话
func (s *conversationRepoImpl) GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("peer_key = ?", peerKey).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// IsMember 检查用户是否是会话成员
func (s *conversationRepoImpl) IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

// ApplyNewMessage 新消息落库后的会话侧原子更新：
// 预览信息、计数、接收方未读+1、发送方未读清零，全部在一个事务里
func (s *conversationRepoImpl) ApplyNewMessage(ctx context.Context, convID uint64, msgID string, preview string, msgType string, senderID, receiverID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Conversation{}).Where("id = ?", convID).
			Updates(map[string]interface{}{
				"last_message_id": msgID,
				"last_msg_text":   preview,
				"last_msg_type":   msgType,
				"last_sender_id":  senderID,
				"last_message_at": time.Now(),
				"message_count":   gorm.Expr("message_count + 1"),
			}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&model.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ?", convID, receiverID).
			Update("unread_count", gorm.Expr("unread_count + 1")).Error
		if err != nil {
			return err
		}

		return tx.Model(&model.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ?", convID, senderID).
			Update("unread_count", 0).Error
	})
}

// ResetUnread 清零用户在会话中的未读数
func (s *conversationRepoImpl) ResetUnread(ctx context.Context, convID, userID uint64) error {
	return s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("unread_count", 0).Error
}

// SetLastMessage 撤回后修复会话预览，msgID 为 nil 表示会话已无可见消息
func (s *conversationRepoImpl) SetLastMessage(ctx context.Context, convID uint64, msgID *string, preview string, msgType string, senderID uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_message_id": msgID,
			"last_msg_text":   preview,
			"last_msg_type":   msgType,
			"last_sender_id":  senderID,
			"last_message_at": at,
		}).Error
}

// GetUserConversationMemList 联表查询，利用嵌套 Model 自动装配
func (s *conversationRepoImpl) GetUserConversationMemList(ctx context.Context, userID uint64) ([]*model.ConversationMember, error) {
	var members []*model.ConversationMember
	// 使用 Conversation__ 别名配合 GORM 的嵌套填充特性
	err := s.db.WithContext(ctx).Table("conversation_members m").
		Select("m.*, "+
			"c.id AS `Conversation__id`, "+
			"c.peer_key AS `Conversation__peer_key`, "+
			"c.last_message_id AS `Conversation__last_message_id`, "+
			"c.last_msg_text AS `Conversation__last_msg_text`, "+
			"c.last_msg_type AS `Conversation__last_msg_type`, "+
			"c.last_sender_id AS `Conversation__last_sender_id`, "+
			"c.last_message_at AS `Conversation__last_message_at`, "+
			"c.message_count AS `Conversation__message_count`").
		Joins("JOIN conversations c ON m.conversation_id = c.id").
		Where("m.user_id = ?", userID).
		Order("c.last_message_at DESC").
		Find(&members).Error
	return members, err
}

// GetTotalUnreadCount 计算全局未读数
func (s *conversationRepoImpl) GetTotalUnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Table("conversation_members").
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&total).Error
	return total, err
}
