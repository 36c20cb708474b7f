package router

import (
	"go-battle/controller"
	"go-battle/middleware"
	"go-battle/ws"

	"github.com/gin-gonic/gin"
)

func InitRouter(r *gin.Engine, bc *controller.BattleController, hub *ws.Hub, apiToken string) {
	auth := middleware.AuthMiddleware(apiToken)

	// battle routes
	api := r.Group("/battle")
	{
		api.POST("/create", auth, bc.CreateBattle)
		api.GET("/list", bc.GetBattleList)
		api.GET("/:battleID", bc.GetBattle)
		api.POST("/:battleID/purchase", auth, bc.Purchase)
		api.POST("/:battleID/resume", auth, bc.Resume)
		api.PUT("/:battleID/speed", auth, bc.SetSpeed)
		api.DELETE("/:battleID", auth, bc.DeleteBattle)
	}

	// websocket
	r.GET("/ws", hub.HandleWebSocket)
}
