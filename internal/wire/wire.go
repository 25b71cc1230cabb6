package wire

import (
	"Murmur/internal/api"
	"Murmur/internal/api/config"
	"Murmur/internal/api/handler"
	"Murmur/internal/job"
	"Murmur/internal/pkg/cron"
	"Murmur/internal/pkg/es"
	"Murmur/internal/pkg/kafka"
	pkgmongo "Murmur/internal/pkg/mongo"
	"Murmur/internal/realtime"
	"Murmur/internal/repository"
	"Murmur/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	Registry     *realtime.Registry
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	convRepo := repository.NewConversationRepo(db)
	messageRepo := pkgmongo.NewMessageRepo(mongoDB)
	userESRepo := es.NewUserRepo()

	registry := realtime.NewRegistry()
	typingRelay := realtime.NewTypingRelay(registry)
	registry.SetEventHandler(typingRelay.HandleClientEvent)

	chatService := service.NewChatService(convRepo, userRepo, messageRepo, registry)
	userService := service.NewUserService(userRepo, userESRepo)
	mediaService := service.NewMediaService()
	gifService := service.NewGifService()

	handlers := &api.HandlersGroup{
		UserHandler:  handler.NewUserHandler(userService, mediaService),
		ChatHandler:  handler.NewChatHandler(chatService),
		WsHandler:    handler.NewWsHandler(registry),
		MediaHandler: handler.NewMediaHandler(mediaService),
		GifHandler:   handler.NewGifHandler(gifService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, userESRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(job.NewMediaCleanupJob())

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		Registry:     registry,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}
