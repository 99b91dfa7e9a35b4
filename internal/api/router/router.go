package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
	"github.com/cuongbtq/career-assistant/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", handler.NewHealthHandler(deps).Health)

	authHandler := handler.NewAuthHandler(deps)
	userHandler := handler.NewUserHandler(deps)
	inviteHandler := handler.NewInviteHandler(deps)
	conversationHandler := handler.NewConversationHandler(deps)
	messageHandler := handler.NewMessageHandler(deps)
	factHandler := handler.NewFactHandler(deps)
	promptHandler := handler.NewPromptHandler(deps)
	vacancyHandler := handler.NewVacancyHandler(deps)
	taskHandler := handler.NewTaskHandler(deps)
	uploadHandler := handler.NewUploadHandler(deps)

	v2 := r.Group("/api/v2")

	authGroup := v2.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	api := v2.Group("",
		AuthMiddleware(deps.Tokens, deps.Storage, deps.Logger),
		IDParamsMiddleware("conversation_id", "fact_id", "prompt_id", "vacancy_id", "analysis_id"),
	)

	users := api.Group("/users")
	{
		users.GET("/me", userHandler.Me)
		users.PATCH("/me", userHandler.UpdateMe)
		users.POST("/me/password", userHandler.UpdatePassword)
		users.POST("/me/email", userHandler.UpdateEmail)
		users.POST("/me/username", userHandler.UpdateUsername)
	}

	invites := api.Group("/invites", RequireRole(domain.RoleAdmin))
	{
		invites.POST("", inviteHandler.CreateInvites)
		invites.GET("", inviteHandler.ListInvites)
	}

	conversations := api.Group("/conversations")
	{
		conversations.GET("", conversationHandler.ListConversations)
		conversations.POST("", conversationHandler.CreateConversation)
		conversations.GET("/:conversation_id", conversationHandler.GetConversation)
		conversations.PATCH("/:conversation_id", conversationHandler.UpdateConversation)
		conversations.DELETE("/:conversation_id", conversationHandler.DeleteConversation)

		conversations.GET("/:conversation_id/messages", messageHandler.ListMessages)
		conversations.POST("/:conversation_id/messages", messageHandler.SendMessage)
		conversations.POST("/:conversation_id/messages/stream", messageHandler.StreamMessage)
	}

	facts := api.Group("/facts")
	{
		facts.GET("", factHandler.ListFacts)
		facts.POST("", factHandler.CreateFact)
		facts.GET("/:fact_id", factHandler.GetFact)
		facts.PATCH("/:fact_id", factHandler.UpdateFact)
		facts.DELETE("/:fact_id", factHandler.DeleteFact)
	}

	prompts := api.Group("/prompts")
	{
		prompts.GET("", promptHandler.ListPrompts)
		prompts.POST("", promptHandler.CreatePrompt)
		prompts.GET("/:prompt_id", promptHandler.GetPrompt)
		prompts.PATCH("/:prompt_id", promptHandler.UpdatePrompt)
		prompts.DELETE("/:prompt_id", promptHandler.DeletePrompt)
	}

	vacancies := api.Group("/vacancies")
	{
		vacancies.GET("", vacancyHandler.ListVacancies)
		vacancies.POST("/import/:hh_id", vacancyHandler.ImportVacancy)
		vacancies.GET("/:vacancy_id", vacancyHandler.GetVacancy)
		vacancies.DELETE("/:vacancy_id", vacancyHandler.DeleteVacancy)
		vacancies.PUT("/:vacancy_id/favorite", vacancyHandler.AddFavorite)
		vacancies.DELETE("/:vacancy_id/favorite", vacancyHandler.RemoveFavorite)
	}

	analyses := api.Group("/vacancy-analyses")
	{
		analyses.GET("", vacancyHandler.ListAnalyses)
		analyses.GET("/:analysis_id", vacancyHandler.GetAnalysis)
		analyses.DELETE("/:analysis_id", vacancyHandler.DeleteAnalysis)
	}

	uploads := api.Group("/uploads")
	{
		uploads.POST("/conversations", uploadHandler.ImportConversations)
	}

	tasks := api.Group("/tasks")
	{
		tasks.POST("/import_vacancies", taskHandler.ImportVacancies)
		tasks.POST("/analysis_vacancies", taskHandler.AnalyzeVacancies)
		tasks.GET("/*task_id", taskHandler.GetTask)
	}

	return r
}
