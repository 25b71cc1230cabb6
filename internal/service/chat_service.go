package service

import (
	"Murmur/internal/api/dto"
	"Murmur/internal/model"
	"Murmur/internal/pkg/consts"
	"Murmur/internal/pkg/minio"
	"Murmur/internal/pkg/mongo"
	"Murmur/internal/pkg/redis"
	"Murmur/internal/realtime"
	"Murmur/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// Pusher 在线推送抽象，由 realtime.Registry 实现
type Pusher interface {
	PushToUser(userID uint64, event string, data interface{}) bool
	IsOnline(userID uint64) bool
}

// ChatService 聊天核心服务接口定义
type ChatService interface {
	SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetMessages(ctx context.Context, userID uint64, req *dto.GetMessagesReq) ([]*dto.MessageDTO, error)
	MarkMessageAsRead(ctx context.Context, userID uint64, messageID string) (*dto.MessageDTO, error)
	DeleteForMe(ctx context.Context, userID uint64, messageID string) error
	DeleteForEveryone(ctx context.Context, userID uint64, messageID string) error
	GetOrCreateConversation(ctx context.Context, userID, peerID uint64) (*dto.ConversationDTO, error)
	GetContacts(ctx context.Context, userID uint64) ([]*dto.ContactDTO, error)
	GetUnreadTotal(ctx context.Context, userID uint64) (*dto.UnreadTotalDTO, error)
}

type chatServiceImpl struct {
	convRepo    repository.ConversationRepo
	userRepo    repository.UserRepo
	messageRepo mongo.MessageRepo
	pusher      Pusher
}

func NewChatService(convRepo repository.ConversationRepo, userRepo repository.UserRepo, messageRepo mongo.MessageRepo, pusher Pusher) ChatService {
	return &chatServiceImpl{
		convRepo:    convRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		pusher:      pusher,
	}
}

const defaultPageSize = 50

// SendMessage 发送消息：校验 -> 解析会话 -> 落库 -> 会话侧更新 -> 在线推送
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if req.ReceiverID == 0 {
		return nil, ErrReceiverRequired
	}
	if req.Type == "" {
		req.Type = consts.MsgTypeText
	}

	// 按消息类型校验内容，附件类消息必须先走上传接口
	var media *mongo.Media
	switch req.Type {
	case consts.MsgTypeText:
		if strings.TrimSpace(req.Text) == "" {
			return nil, ErrMessageEmpty
		}
	case consts.MsgTypeImage, consts.MsgTypeVideo, consts.MsgTypeFile, consts.MsgTypeVoice:
		m, err := s.claimUploadedMedia(ctx, req.ObjectKey)
		if err != nil {
			return nil, err
		}
		media = m
	case consts.MsgTypeGif:
		if req.GifURL == "" {
			return nil, ErrMessageEmpty
		}
		if !isGiphyURL(req.GifURL) {
			return nil, ErrParamInvalid
		}
	default:
		return nil, ErrParamInvalid
	}

	if req.ReceiverID == senderID {
		return nil, ErrMessageToSelf
	}

	receiver, err := s.userRepo.GetUserById(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil || receiver.IsDelete {
		return nil, ErrUserNotFound
	}

	conv, err := s.resolveConversation(ctx, senderID, req)
	if err != nil {
		return nil, err
	}

	// 送达集合：发送者必达，接收者在线时即刻记为已送达
	deliveredTo := []uint64{senderID}
	receiverOnline := s.pusher.IsOnline(req.ReceiverID)
	if receiverOnline {
		deliveredTo = append(deliveredTo, req.ReceiverID)
	}

	msg := &mongo.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		Type:           req.Type,
		Text:           req.Text,
		Media:          media,
		GifURL:         req.GifURL,
		ReadBy:         []uint64{senderID},
		DeliveredTo:    deliveredTo,
	}
	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	// 未读数与 lastMessage 必须与落库结果一致，更新失败则整个发送按失败返回
	if err := s.convRepo.ApplyNewMessage(ctx, conv.ID, msg.ID, previewText(msg), msg.Type, senderID, req.ReceiverID); err != nil {
		log.ErrorContext(ctx, "会话侧更新失败", "convID", conv.ID, "msgID", msg.ID, "err", err)
		return nil, err
	}

	// 附件已被消息认领，从暂存 Hash 摘除，避免被清理任务回收
	if media != nil {
		_ = redis.HDel(ctx, consts.MediaTempKey, media.ObjectKey)
	}

	msgDTO := s.toMessageDTO(msg, senderID)
	if sender, err := s.userRepo.GetUserById(ctx, senderID); err == nil {
		msgDTO.Sender = userSummary(sender)
	}
	msgDTO.Receiver = userSummary(receiver)

	if receiverOnline {
		s.pusher.PushToUser(req.ReceiverID, realtime.EventNewMessage, msgDTO)
		s.pusher.PushToUser(senderID, realtime.EventMessageDelivered, &dto.MessageDeliveredDTO{
			MessageID:      msg.ID,
			ConversationID: conv.ID,
			DeliveredTo:    req.ReceiverID,
		})
	}

	return msgDTO, nil
}

// resolveConversation 指定会话 ID 时要求会话存在且发送者是成员，否则按双方查找或创建
func (s *chatServiceImpl) resolveConversation(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*model.Conversation, error) {
	if req.ConversationID == 0 {
		return s.convRepo.GetOrCreate(ctx, senderID, req.ReceiverID)
	}

	conv, err := s.convRepo.GetConversation(ctx, req.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	ok, err := s.convRepo.IsMember(ctx, conv.ID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConversationMember
	}
	return conv, nil
}

// claimUploadedMedia 校验附件已上传且仍在暂存期内，返回附件元数据
func (s *chatServiceImpl) claimUploadedMedia(ctx context.Context, objectKey string) (*mongo.Media, error) {
	if objectKey == "" {
		return nil, ErrMessageEmpty
	}

	raw, err := redis.HGet(ctx, consts.MediaTempKey, objectKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		// 暂存记录不在了，回源 MinIO 再确认一次
		exists, err := minio.StatFile(ctx, objectKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrMediaNotUploaded
		}
		return &mongo.Media{
			URL:       minio.GetPublicURL(objectKey),
			ObjectKey: objectKey,
		}, nil
	}

	var meta dto.MediaTempMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, ErrMediaNotUploaded
	}
	return &mongo.Media{
		URL:       minio.GetPublicURL(objectKey),
		ObjectKey: objectKey,
		MimeType:  meta.MimeType,
		FileName:  meta.FileName,
		FileSize:  meta.FileSize,
	}, nil
}

// GetMessages 拉取会话历史消息，按时间升序返回
// 拉取即视为阅读：对方发来的未读消息批量置已读并通知发送者
func (s *chatServiceImpl) GetMessages(ctx context.Context, userID uint64, req *dto.GetMessagesReq) ([]*dto.MessageDTO, error) {
	if req.ConversationID == 0 {
		return nil, ErrParamInvalid
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = defaultPageSize
	}

	conv, err := s.convRepo.GetConversation(ctx, req.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	ok, err := s.convRepo.IsMember(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConversationMember
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conv.ID, req.Page, req.Size)
	if err != nil {
		return nil, err
	}

	// 本页中对方发出且未读的消息，置已读后逐条回执
	var justRead []*mongo.Message
	for _, m := range messages {
		if m.SenderID != userID && !m.ReadByContains(userID) {
			justRead = append(justRead, m)
		}
	}
	if len(justRead) > 0 {
		if _, err := s.messageRepo.MarkConversationRead(ctx, conv.ID, userID); err != nil {
			log.WarnContext(ctx, "批量置已读失败", "convID", conv.ID, "err", err)
		}
		if err := s.convRepo.ResetUnread(ctx, conv.ID, userID); err != nil {
			log.WarnContext(ctx, "未读数清零失败", "convID", conv.ID, "err", err)
		}
		for _, m := range justRead {
			s.pusher.PushToUser(m.SenderID, realtime.EventMessageRead, &dto.MessageReadDTO{
				MessageID:      m.ID,
				ConversationID: conv.ID,
				ReaderID:       userID,
			})
		}
	}

	// 倒序翻页查出来的结果反转为时间升序，删除态消息由视图转换渲染为占位符
	res := make([]*dto.MessageDTO, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		res = append(res, s.toMessageDTO(messages[i], userID))
	}
	return res, nil
}

// MarkMessageAsRead 单条已读：仅接收者可标记，幂等
func (s *chatServiceImpl) MarkMessageAsRead(ctx context.Context, userID uint64, messageID string) (*dto.MessageDTO, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.ReceiverID != userID {
		return nil, ErrNotMessageReceiver
	}

	changed, err := s.messageRepo.AddReadBy(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.convRepo.ResetUnread(ctx, msg.ConversationID, userID); err != nil {
		log.WarnContext(ctx, "未读数清零失败", "convID", msg.ConversationID, "err", err)
	}

	// 重复标记不再重发回执
	if changed {
		msg.ReadBy = append(msg.ReadBy, userID)
		s.pusher.PushToUser(msg.SenderID, realtime.EventMessageRead, &dto.MessageReadDTO{
			MessageID:      msg.ID,
			ConversationID: msg.ConversationID,
			ReaderID:       userID,
		})
	}

	return s.toMessageDTO(msg, userID), nil
}

// DeleteForMe 单方删除：双方任一成员可操作，只影响自己的视图
func (s *chatServiceImpl) DeleteForMe(ctx context.Context, userID uint64, messageID string) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		return ErrNotConversationMember
	}

	if err := s.messageRepo.AddDeletedFor(ctx, messageID, userID); err != nil {
		return err
	}

	s.pusher.PushToUser(s.peerOf(msg, userID), realtime.EventMessageDeletedForMe, &dto.MessageDeletedDTO{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		DeletedBy:      userID,
	})
	return nil
}

// DeleteForEveryone 全员撤回：仅发送者可操作，并回填会话 lastMessage
func (s *chatServiceImpl) DeleteForEveryone(ctx context.Context, userID uint64, messageID string) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrNotMessageSender
	}

	if err := s.messageRepo.MarkDeletedForEveryone(ctx, messageID, []uint64{msg.SenderID, msg.ReceiverID}); err != nil {
		return err
	}

	if err := s.repairLastMessage(ctx, msg); err != nil {
		log.WarnContext(ctx, "会话 lastMessage 回填失败", "convID", msg.ConversationID, "err", err)
	}

	s.pusher.PushToUser(s.peerOf(msg, userID), realtime.EventMessageDeletedForEveryone, &dto.MessageDeletedDTO{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		DeletedBy:      userID,
	})
	return nil
}

// repairLastMessage 被撤回的消息若是会话预览，回退到最近一条未撤回消息
func (s *chatServiceImpl) repairLastMessage(ctx context.Context, deleted *mongo.Message) error {
	conv, err := s.convRepo.GetConversation(ctx, deleted.ConversationID)
	if err != nil {
		return err
	}
	if conv.LastMessageID == nil || *conv.LastMessageID != deleted.ID {
		return nil
	}

	latest, err := s.messageRepo.LatestVisible(ctx, deleted.ConversationID, deleted.ID)
	if err != nil {
		return err
	}
	if latest == nil {
		return s.convRepo.SetLastMessage(ctx, conv.ID, nil, "", consts.MsgTypeText, 0, conv.LastMessageAt)
	}
	return s.convRepo.SetLastMessage(ctx, conv.ID, &latest.ID, previewText(latest), latest.Type, latest.SenderID, latest.CreatedAt)
}

// GetOrCreateConversation 打开聊天窗口时确保会话存在
func (s *chatServiceImpl) GetOrCreateConversation(ctx context.Context, userID, peerID uint64) (*dto.ConversationDTO, error) {
	if peerID == 0 {
		return nil, ErrReceiverRequired
	}
	if peerID == userID {
		return nil, ErrMessageToSelf
	}

	peer, err := s.userRepo.GetUserById(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if peer == nil || peer.IsDelete {
		return nil, ErrUserNotFound
	}

	conv, err := s.convRepo.GetOrCreate(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}

	return &dto.ConversationDTO{
		ConversationID: conv.ID,
		PeerID:         peerID,
		LastMessageID:  conv.LastMessageID,
		LastMsgText:    conv.LastMsgText,
		LastMsgType:    conv.LastMsgType,
		LastSenderID:   conv.LastSenderID,
		LastMessageAt:  conv.LastMessageAt,
	}, nil
}

// GetContacts 侧边栏联系人：全部用户叠加会话摘要与在线状态
func (s *chatServiceImpl) GetContacts(ctx context.Context, userID uint64) ([]*dto.ContactDTO, error) {
	users, err := s.userRepo.ListUsersExcept(ctx, userID)
	if err != nil {
		return nil, err
	}

	members, err := s.convRepo.GetUserConversationMemList(ctx, userID)
	if err != nil {
		return nil, err
	}
	byPeer := make(map[uint64]*model.ConversationMember, len(members))
	for _, m := range members {
		peerID, err := parsePeerID(m.Conversation.PeerKey, userID)
		if err != nil {
			continue
		}
		byPeer[peerID] = m
	}

	res := make([]*dto.ContactDTO, 0, len(users))
	for _, u := range users {
		c := &dto.ContactDTO{
			UserID:    u.ID,
			Username:  u.Username,
			Nickname:  u.Nickname,
			AvatarURL: u.AvatarURL,
			Online:    s.pusher.IsOnline(u.ID),
		}
		if m, ok := byPeer[u.ID]; ok {
			c.LastMsgText = m.Conversation.LastMsgText
			c.LastMsgType = m.Conversation.LastMsgType
			c.LastSenderID = m.Conversation.LastSenderID
			c.LastMessageAt = m.Conversation.LastMessageAt
			c.UnreadCount = m.UnreadCount
		}
		res = append(res, c)
	}
	return res, nil
}

// GetUnreadTotal 全局未读角标：用户所有会话未读数之和
func (s *chatServiceImpl) GetUnreadTotal(ctx context.Context, userID uint64) (*dto.UnreadTotalDTO, error) {
	total, err := s.convRepo.GetTotalUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.UnreadTotalDTO{Total: total}, nil
}

func (s *chatServiceImpl) peerOf(msg *mongo.Message, userID uint64) uint64 {
	if msg.SenderID == userID {
		return msg.ReceiverID
	}
	return msg.SenderID
}

// toMessageDTO 视图转换：对当前查看者删除态的消息（单方或全员）只保留占位文本
func (s *chatServiceImpl) toMessageDTO(msg *mongo.Message, viewerID uint64) *dto.MessageDTO {
	d := &dto.MessageDTO{
		ID:                 msg.ID,
		ConversationID:     msg.ConversationID,
		SenderID:           msg.SenderID,
		ReceiverID:         msg.ReceiverID,
		Type:               msg.Type,
		Text:               msg.Text,
		GifURL:             msg.GifURL,
		ReadBy:             msg.ReadBy,
		DeliveredTo:        msg.DeliveredTo,
		DeletedForEveryone: msg.DeletedForEveryone,
		CreatedAt:          msg.CreatedAt,
	}

	if msg.DeletedForViewer(viewerID) {
		d.Deleted = true
		d.Text = consts.DeletedPlaceholder
		d.GifURL = ""
		return d
	}

	if msg.Media != nil {
		d.Media = &dto.MediaDTO{
			URL:      msg.Media.URL,
			MimeType: msg.Media.MimeType,
			FileName: msg.Media.FileName,
			FileSize: msg.Media.FileSize,
		}
	}
	return d
}

// previewText 会话列表预览文案
func previewText(msg *mongo.Message) string {
	switch msg.Type {
	case consts.MsgTypeImage:
		return "[图片]"
	case consts.MsgTypeVideo:
		return "[视频]"
	case consts.MsgTypeFile:
		return "[文件]"
	case consts.MsgTypeVoice:
		return "[语音]"
	case consts.MsgTypeGif:
		return "[GIF]"
	default:
		// 按字符截断，避免把多字节字符切成半个
		runes := []rune(msg.Text)
		if len(runes) > 120 {
			return string(runes[:120])
		}
		return msg.Text
	}
}

func userSummary(u *model.User) *dto.UserSummaryDTO {
	if u == nil {
		return nil
	}
	return &dto.UserSummaryDTO{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
	}
}

// isGiphyURL 只信任 Giphy 域名下的 HTTPS 链接
func isGiphyURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	return host == "giphy.com" || strings.HasSuffix(host, ".giphy.com")
}

// parsePeerID 从 PeerKey 中解析对手方 ID
func parsePeerID(peerKey string, userID uint64) (uint64, error) {
	parts := strings.Split(peerKey, "_")
	if len(parts) != 2 {
		return 0, ErrParamInvalid
	}
	a, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, err
	}
	b, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, err
	}
	if a == userID {
		return b, nil
	}
	return a, nil
}
