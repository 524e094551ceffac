package router

import (
	"github.com/blues/liftoff/internal/handler"
	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/protocol"
	"github.com/blues/liftoff/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Setup 注册全部路由, db 为 nil 时不提供流水查询, hub 为 nil 时不提供事件推送
func Setup(p *protocol.Protocol, db *gorm.DB, hub *stream.Hub, metrics *observability.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "liftoff",
		})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if hub != nil {
		r.GET("/ws/events", hub.Serve)
	}

	// API版本组
	v1 := r.Group("/api/v1")
	{
		raiseHandler := handler.NewRaiseHandler(p.Engine, p.Registration, metrics)
		insuranceHandler := handler.NewInsuranceHandler(p.Insurance, metrics)
		partnershipHandler := handler.NewPartnershipHandler(p.Partnerships, metrics)

		// 募资相关路由
		raises := v1.Group("/raises")
		{
			raises.POST("", raiseHandler.RegisterProject)
			raises.GET("", raiseHandler.GetRaises)
			raises.GET("/:id", raiseHandler.GetRaise)
			raises.GET("/:id/ignitors", raiseHandler.GetIgnitors)
			raises.GET("/:id/ignitors/:address", raiseHandler.GetIgnitor)
			raises.POST("/:id/ignite", raiseHandler.Ignite)
			raises.POST("/:id/undo", raiseHandler.UndoIgnite)
			raises.POST("/:id/spark", raiseHandler.Spark)
			raises.POST("/:id/claim", raiseHandler.ClaimReward)
			raises.POST("/:id/refund", raiseHandler.ClaimRefund)
			raises.PUT("/:id/end-time", raiseHandler.UpdateEndTime)

			// 保险相关路由
			raises.GET("/:id/insurance", insuranceHandler.GetInsurance)
			raises.POST("/:id/insurance", insuranceHandler.CreateInsurance)
			raises.POST("/:id/insurance/redeem", insuranceHandler.Redeem)
			raises.GET("/:id/insurance/redeem-value", insuranceHandler.GetRedeemValue)
			raises.POST("/:id/insurance/claim", insuranceHandler.Claim)
			raises.GET("/:id/insurance/claimable", insuranceHandler.GetClaimable)
			raises.GET("/:id/insurance/bonus/:address", insuranceHandler.GetBonus)
			raises.POST("/:id/insurance/bonus/increase", insuranceHandler.IncreaseBonus)
			raises.POST("/:id/insurance/bonus/decrease", insuranceHandler.DecreaseBonus)

			// 分成申请
			raises.GET("/:id/partnerships", partnershipHandler.GetRequests)
			raises.POST("/:id/partnerships", partnershipHandler.RequestPartnership)
			raises.POST("/:id/partnerships/:rid/accept", partnershipHandler.AcceptPartnership)
			raises.POST("/:id/partnerships/:rid/cancel", partnershipHandler.CancelPartnership)
		}

		partners := v1.Group("/partners")
		{
			partners.GET("/:pid", partnershipHandler.GetPartner)
			partners.PUT("/:pid", partnershipHandler.SetPartner)
		}

		settingsHandler := handler.NewSettingsHandler(p, metrics)
		admin := v1.Group("/settings")
		{
			admin.GET("", settingsHandler.GetSettings)
			admin.PUT("/busd-bp", settingsHandler.SetBusdBP)
			admin.PUT("/uints", settingsHandler.SetAllUints)
			admin.PUT("/addresses", settingsHandler.SetAllAddresses)
			admin.GET("/window", settingsHandler.GetWindow)
			admin.PUT("/window", settingsHandler.SetWindow)
		}
		v1.GET("/balances/:token/:address", settingsHandler.GetBalance)
		v1.POST("/faucet", settingsHandler.Fund)

		// 流水查询路由
		if db != nil {
			recordHandler := handler.NewRecordHandler(db)
			records := v1.Group("/records")
			{
				records.GET("/raises", recordHandler.GetRaiseRecords)
				records.GET("/raises/:id", recordHandler.GetRaiseRecord)
				records.GET("/raises/:id/stats", recordHandler.GetRaiseStats)
				records.GET("/raises/:id/ignitions", recordHandler.GetIgnitions)
				records.GET("/raises/:id/rewards", recordHandler.GetRewardClaims)
				records.GET("/raises/:id/refunds", recordHandler.GetRefunds)
				records.GET("/raises/:id/insurance", recordHandler.GetInsuranceRecord)
				records.GET("/raises/:id/redeems", recordHandler.GetRedeems)
				records.GET("/raises/:id/claims", recordHandler.GetInsuranceClaims)
				records.GET("/users/:address/ignitions", recordHandler.GetUserIgnitions)
				records.GET("/users/:address/redeems", recordHandler.GetUserRedeems)
				records.GET("/events", recordHandler.GetEvents)
				records.GET("/events/:event_id", recordHandler.GetEvent)
			}
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Caller-Address")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
