package router

import (
	"community_chat/internal/handler"
	"community_chat/internal/middleware"
	"community_chat/internal/pkg"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

type Deps struct {
	DB          *gorm.DB
	Log         *pkg.Logger
	Secret      []byte
	Sessions    middleware.SessionStore
	Origins     []string
	ServiceName string

	Community *handler.CommunityHandler
	Chat      *handler.ChatHandler
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.CORS(d.Origins))

	health := handler.NewHealthHandler(d.DB)
	r.GET("/healthz", health.Healthz)

	// 社区相关接口
	communityGroup := r.Group("/api/communities")
	communityGroup.Use(middleware.AuthMiddleware(d.Secret, d.Sessions))
	{
		communityGroup.POST("", d.Community.Create)
		communityGroup.GET("", d.Community.List)
		communityGroup.GET("/mine", d.Community.Mine)
		communityGroup.GET("/:id", d.Community.Get)
		communityGroup.PUT("/:id", d.Community.Update)
		communityGroup.DELETE("/:id", d.Community.Delete)
		communityGroup.POST("/:id/join", d.Community.Join)
		communityGroup.DELETE("/:id/leave", d.Community.Leave)
		communityGroup.GET("/:id/members", d.Community.Members)
	}

	// 社区聊天接口
	chatGroup := communityGroup.Group("/:id/chat")
	{
		chatGroup.GET("", d.Chat.List)
		chatGroup.POST("", d.Chat.Send)
		chatGroup.GET("/activity", d.Chat.Activity)
		chatGroup.PUT("/:messageId", d.Chat.Edit)
		chatGroup.DELETE("/:messageId", d.Chat.Delete)
	}

	return r
}
