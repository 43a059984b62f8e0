package app

import (
	"assessly_backend/docs"
	"assessly_backend/internal/config"
	"assessly_backend/internal/middleware"
	"assessly_backend/internal/model"
	"assessly_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.auth.Profile)
		authGroup.PUT("/profile", c.auth.UpdateProfile)

		// Student-facing assessment surface.
		authGroup.GET("/assessments", c.assessment.List)
		authGroup.GET("/assessments/:id", c.assessment.Get)
		authGroup.POST("/assessments/:id/start", c.submission.Start)

		authGroup.GET("/submissions", c.submission.History)
		authGroup.PUT("/submissions/:id/answers", c.submission.SaveAnswer)
		authGroup.POST("/submissions/:id/submit", c.submission.Submit)
		authGroup.GET("/submissions/:id/results", c.submission.Results)
		authGroup.POST("/submissions/:id/files", c.submission.UploadFile)

		authGroup.POST("/submissions/:id/events", c.proctoring.Report)
		authGroup.GET("/submissions/:id/events", c.proctoring.List)

		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.RoleTeacher))
		{
			teacher.POST("/assessments", c.assessment.Create)
			teacher.PUT("/assessments/:id", c.assessment.Update)
			teacher.DELETE("/assessments/:id", c.assessment.Delete)
			teacher.POST("/assessments/:id/publish", c.assessment.Publish)
			teacher.POST("/assessments/:id/unpublish", c.assessment.Unpublish)
			teacher.GET("/assessments/:id/questions", c.assessment.ListQuestions)
			teacher.POST("/assessments/:id/questions", c.assessment.AttachQuestion)
			teacher.DELETE("/assessments/:id/questions/:questionId", c.assessment.DetachQuestion)

			teacher.POST("/questions", c.assessment.CreateQuestion)
			teacher.PUT("/questions/:id", c.assessment.UpdateQuestion)
			teacher.DELETE("/questions/:id", c.assessment.DeleteQuestion)

			teacher.POST("/submissions/:id/grade", c.grading.Grade)
			teacher.GET("/submissions/:id/pending", c.grading.Pending)
		}
	}
}
