package wire

import (
	"Chatter/internal/api"
	"Chatter/internal/api/config"
	"Chatter/internal/api/handler"
	"Chatter/internal/job"
	"Chatter/internal/pkg/cron"
	"Chatter/internal/pkg/es"
	"Chatter/internal/pkg/minio"
	"Chatter/internal/pkg/redis"
	"Chatter/internal/pkg/security"
	"Chatter/internal/realtime"
	"Chatter/internal/repository"
	"Chatter/internal/service"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *mongo.Database
	Gateway *realtime.Gateway
	CronMgr *cron.Manager
}

// BuildApplication esClient 与 storage 可为 nil, 对应功能降级
func BuildApplication(db *mongo.Database, esClient *elasticsearch.TypedClient, storage *minio.Storage, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	conversationRepo := repository.NewConversationRepo(db)
	messageRepo := repository.NewMessageRepo(db)

	var indexer service.UserIndexer
	if esClient != nil {
		indexer = es.NewUserRepo(esClient, cfg.Elastic.UserIndex)
	}
	var objectStorage service.ObjectStorage
	if storage != nil {
		objectStorage = storage
	}

	jwtManager := security.NewJWTManager(cfg.JWT)
	authService := service.NewAuthService(userRepo, jwtManager, redis.NewTokenBlacklist(), indexer, !cfg.Server.IsProduction())
	userService := service.NewUserService(userRepo, indexer, objectStorage)
	chatService := service.NewChatService(conversationRepo, messageRepo, userRepo)

	gateway := realtime.NewGateway(realtime.NewRegistry(), userService, chatService, cfg.WS)

	handlers := &api.HandlersGroup{
		AuthHandler:   handler.NewAuthHandler(authService, userService, cfg.JWT.RefreshTTL, cfg.Server.IsProduction()),
		UserHandler:   handler.NewUserHandler(userService),
		ChatHandler:   handler.NewChatHandler(chatService),
		MediaHandler:  handler.NewMediaHandler(objectStorage),
		WsHandler:     handler.NewWsHandler(authService, gateway, cfg.Server.ClientURL),
		HealthHandler: handler.NewHealthHandler(db),
	}

	router := api.SetupRouter(handlers, api.RouterDeps{
		AuthService: authService,
		Limiter:     redis.NewWindowLimiter(),
		RateLimit:   cfg.RateLimit,
		ClientURL:   cfg.Server.ClientURL,
	})

	locker := redis.NewJobLocker()
	cronMgr := cron.NewCronManager(
		job.NewPresenceResetJob(userService, locker),
		job.NewMessageCleanJob(chatService, locker),
		job.NewResetTokenCleanJob(userRepo, locker),
	)

	return &ApplicationContainer{
		Router:  router,
		DB:      db,
		Gateway: gateway,
		CronMgr: cronMgr,
	}, nil
}
