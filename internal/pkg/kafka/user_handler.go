package kafka

import (
	"Murmur/internal/pkg/es"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// UserHandler 消费 users 表的 Canal 变更，同步到 ES 搜索索引
type UserHandler struct {
	userESRepo es.UserRepo
}

func NewUserHandler(userESRepo es.UserRepo) *UserHandler {
	return &UserHandler{
		userESRepo: userESRepo,
	}
}

func (s *UserHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("user consumer setup")
	return nil
}

func (s *UserHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("user consumer cleanup")
	return nil
}

func (s *UserHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-user consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-user process batch error", "err", err)
		return err
	}
	log.Info("topic-user consume claim end")
	return nil
}

func (s *UserHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, "users")
	if err != nil {
		return err
	}

	row := canalMsg.Data[0]
	userID := StrToUint64(row["id"])

	switch canalMsg.Type {
	case DELETE:
		return s.userESRepo.DeleteUser(ctx, userID)
	case INSERT, UPDATE:
		// 注销用户从索引摘除，不再出现在搜索结果里
		if StrToString(row["is_delete"]) == "1" {
			return s.userESRepo.DeleteUser(ctx, userID)
		}
		user := &es.UserES{
			ID:        userID,
			Username:  StrToString(row["username"]),
			Nickname:  StrToString(row["nickname"]),
			AvatarURL: StrToString(row["avatar_url"]),
		}
		// 以 binlog 时间戳做外部版本，乱序重放不会回退数据
		return s.userESRepo.IndexUser(ctx, user, canalMsg.TS)
	}
	return nil
}
