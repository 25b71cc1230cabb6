package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByConversation(ctx context.Context, convID uint64, page, limit int) ([]*Message, error)
	MarkConversationRead(ctx context.Context, convID, readerID uint64) (int64, error)
	AddReadBy(ctx context.Context, id string, userID uint64) (bool, error)
	AddDeletedFor(ctx context.Context, id string, userID uint64) error
	MarkDeletedForEveryone(ctx context.Context, id string, memberIDs []uint64) error
	LatestVisible(ctx context.Context, convID uint64, excludeID string) (*Message, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("messages"),
	}
}

// Insert 生成 ObjectID 并写入消息，集合为唯一事实来源，只追加不物理删除
func (s *messageRepoImpl) Insert(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
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
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetByID 按 ID 查询，未命中返回 (nil, nil)
func (s *messageRepoImpl) GetByID(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListByConversation 分页查询会话消息，created_at 降序（最新在前）
func (s *messageRepoImpl) ListByConversation(ctx context.Context, convID uint64, page, limit int) ([]*Message, error) {
	filter := bson.M{"conversation_id": convID}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationRead 将会话内所有对方消息批量置为已读，返回受影响条数
func (s *messageRepoImpl) MarkConversationRead(ctx context.Context, convID, readerID uint64) (int64, error) {
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": readerID},
		"read_by":         bson.M{"$ne": readerID},
	}
	update := bson.M{
		"$addToSet": bson.M{"read_by": readerID},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	res, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// AddReadBy 幂等追加已读成员，返回集合是否实际增长
func (s *messageRepoImpl) AddReadBy(ctx context.Context, id string, userID uint64) (bool, error) {
	update := bson.M{
		"$addToSet": bson.M{"read_by": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddDeletedFor 幂等追加单方删除标记
func (s *messageRepoImpl) AddDeletedFor(ctx context.Context, id string, userID uint64) error {
	update := bson.M{
		"$addToSet": bson.M{"deleted_for": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// MarkDeletedForEveryone 全员撤回：置位并把双方都写入 deleted_for
func (s *messageRepoImpl) MarkDeletedForEveryone(ctx context.Context, id string, memberIDs []uint64) error {
	update := bson.M{
		"$set": bson.M{
			"deleted_for_everyone": true,
			"deleted_for":          memberIDs,
			"updated_at":           time.Now(),
		},
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// LatestVisible 查找会话中最近一条未被全员撤回的其他消息，用于 lastMessage 回填；
// 单方删除的消息仍然可以作为 lastMessage
func (s *messageRepoImpl) LatestVisible(ctx context.Context, convID uint64, excludeID string) (*Message, error) {
	filter := bson.M{
		"conversation_id":      convID,
		"_id":                  bson.M{"$ne": excludeID},
		"deleted_for_everyone": false,
	}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var msg Message
	err := s.col.FindOne(ctx, filter, findOptions).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}
