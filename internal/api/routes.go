package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/qr", qrHandler)

		auth := api.Group("/auth")
		auth.POST("/nonce", h.nonce)
		auth.POST("/wallet", h.walletLogin)
		auth.POST("/login", h.passwordLogin)
		auth.POST("/register", h.register)
		auth.POST("/logout", h.logout)

		user := api.Group("", h.requireWorkspace)
		user.GET("/profile", h.profile)
		user.POST("/wallet/bind/request", h.requestBind)
		user.POST("/wallet/bind/confirm", h.confirmBind)
		user.POST("/wallet/unbind", h.unbind)

		user.GET("/cards", h.listCards)
		user.GET("/deck", h.deckView)
		user.POST("/deck/reload", h.reloadDeck)
		user.POST("/deck/edit", h.beginEdit)
		user.POST("/deck/toggle", h.toggle)
		user.POST("/deck/remove", h.removeAt)
		user.POST("/deck/commit", h.commit)
		user.POST("/deck/cancel", h.cancel)
		user.GET("/deck/export", h.exportDeck)
		user.GET("/deck/image", h.deckImage)

		user.POST("/battle", h.battle)
		user.GET("/game/ws", h.gameSocket)
		user.GET("/game/status", h.gameStatus)
	}
}
