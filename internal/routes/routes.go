package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"medconnect-server/internal/appointments"
	"medconnect-server/internal/booking"
	"medconnect-server/internal/cart"
	"medconnect-server/internal/config"
	"medconnect-server/internal/consultation"
	"medconnect-server/internal/emergency"
	"medconnect-server/internal/handlers"
	"medconnect-server/internal/integrations"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/middleware"
	"medconnect-server/internal/models"
	"medconnect-server/internal/notifications"
	"medconnect-server/internal/orders"
	"medconnect-server/internal/prescriptions"
	"medconnect-server/internal/records"
	"medconnect-server/internal/store"
	"medconnect-server/internal/symptoms"
)

const streamPath = "/api/v1/notifications/stream"

// Deps are the shared components the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Store        *store.Store
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
	Notifier     *notifications.Service
	Integrations integrations.Integrations
}

// NewRouter builds the gin engine with the global middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))
	router.Use(d.Metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{d.Config.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.IdempotencyHeader}
	router.Use(cors.New(corsConfig))

	// The event stream must reach the client unbuffered.
	router.Use(gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{streamPath})))

	SetupRoutes(router, d)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg, st, log, m := d.Config, d.Store, d.Logger, d.Metrics

	bookingSvc := booking.NewService(st, d.Notifier, m, log, cfg.Consultation.MeetingBaseURL)
	appointmentSvc := appointments.NewService(st, d.Notifier, m, log, cfg.Consultation.MeetingBaseURL)
	prescriptionSvc := prescriptions.NewService(prescriptions.NewRepository(st), d.Notifier, m, log, cfg.PrescriptionSecret)
	symptomSvc := symptoms.NewService(d.Integrations, st, log)
	emergencySvc := emergency.NewService(st, d.Notifier, m, log, cfg.Emergency.MaxHospitals)
	cartSvc := cart.NewService(cart.NewRepository(st), d.Notifier, cfg.Commerce, m, log)
	orderSvc := orders.NewService(orders.NewRepository(st), d.Notifier, log)
	recordSvc := records.NewService(st, d.Integrations, log)
	chatSvc := consultation.NewService(st, d.Notifier, log)

	authHandler := handlers.NewAuthHandler(st, cfg, log)
	userHandler := handlers.NewUserHandler(st, log)
	doctorHandler := handlers.NewDoctorHandler(st, bookingSvc, log)
	appointmentHandler := handlers.NewAppointmentHandler(bookingSvc, appointmentSvc)
	prescriptionHandler := handlers.NewPrescriptionHandler(prescriptionSvc)
	symptomHandler := handlers.NewSymptomHandler(symptomSvc)
	emergencyHandler := handlers.NewEmergencyHandler(emergencySvc)
	commerceHandler := handlers.NewCommerceHandler(st, cartSvc, orderSvc)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(recordSvc)
	messageHandler := handlers.NewMessageHandler(chatSvc)
	notificationHandler := handlers.NewNotificationHandler(d.Notifier)
	entityHandler := handlers.NewEntityHandler(st, log)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		public.GET("/doctors", doctorHandler.ListDoctors)
		public.GET("/doctors/:id", doctorHandler.GetDoctor)
		public.GET("/doctors/:id/slots", doctorHandler.Slots)

		public.GET("/medicines", commerceHandler.ListMedicines)
		public.GET("/medicines/:id", commerceHandler.GetMedicine)
		public.GET("/lab-tests", commerceHandler.ListLabTests)
		public.GET("/lab-tests/:id", commerceHandler.GetLabTest)

		// The booking wizard keeps no server state.
		public.POST("/appointments/wizard", appointmentHandler.Wizard)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), userHandler.GetPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		private.PUT("/doctors/me/profile", middleware.RoleAuthMiddleware(models.RoleDoctor), doctorHandler.UpdateMyProfile)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.GET("/:id/messages", messageHandler.GetMessages)
			appointmentRoutes.POST("/:id/messages", messageHandler.SendMessage)
		}

		prescriptionRoutes := private.Group("/prescriptions")
		{
			prescriptionRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.Issue)
			prescriptionRoutes.GET("", prescriptionHandler.List)
			prescriptionRoutes.GET("/:id", prescriptionHandler.Get)
			prescriptionRoutes.GET("/:id/verify", prescriptionHandler.Verify)
		}

		private.POST("/symptoms/check", symptomHandler.Check)
		private.POST("/assistant/chat", symptomHandler.Chat)

		emergencyRoutes := private.Group("/emergency")
		{
			emergencyRoutes.POST("", emergencyHandler.Raise)
			emergencyRoutes.GET("", emergencyHandler.List)
			emergencyRoutes.GET("/:id", emergencyHandler.Get)
			emergencyRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleHospital, models.RoleAdmin), emergencyHandler.UpdateStatus)
		}

		cartRoutes := private.Group("/cart/:kind")
		cartRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			cartRoutes.GET("", commerceHandler.GetCart)
			cartRoutes.DELETE("", commerceHandler.ClearCart)
			cartRoutes.POST("/items", commerceHandler.AddCartItem)
			cartRoutes.PATCH("/items/:itemId", commerceHandler.SetCartQuantity)
			cartRoutes.DELETE("/items/:itemId", commerceHandler.RemoveCartItem)
			cartRoutes.POST("/checkout", commerceHandler.Checkout)
		}

		orderRoutes := private.Group("/orders")
		{
			orderRoutes.GET("", commerceHandler.ListOrders)
			orderRoutes.GET("/:id", commerceHandler.GetOrder)
			orderRoutes.PATCH("/:id/status", commerceHandler.UpdateOrderStatus)
		}

		recordRoutes := private.Group("/records")
		{
			recordRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), medicalRecordHandler.CreateMedicalRecord)
			recordRoutes.GET("", medicalRecordHandler.GetMedicalRecords)
			recordRoutes.GET("/summary", middleware.RoleAuthMiddleware(models.RolePatient), medicalRecordHandler.Summary)
			recordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
			recordRoutes.PUT("/:id", medicalRecordHandler.UpdateMedicalRecord)
			recordRoutes.DELETE("/:id", medicalRecordHandler.DeleteMedicalRecord)
			recordRoutes.POST("/:id/share", medicalRecordHandler.Share)
			recordRoutes.POST("/:id/unshare", medicalRecordHandler.Unshare)
			recordRoutes.POST("/:id/extract", medicalRecordHandler.Extract)
		}
		private.POST("/files", medicalRecordHandler.UploadFile)
		private.GET("/files/:id", medicalRecordHandler.GetFile)

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.List)
			notificationRoutes.GET("/unread-count", notificationHandler.UnreadCount)
			notificationRoutes.GET("/stream", notificationHandler.Stream)
			notificationRoutes.PATCH("/read-all", notificationHandler.MarkAllRead)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkRead)
			notificationRoutes.DELETE("/:id", notificationHandler.Delete)
			notificationRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin), notificationHandler.Create)
		}

		adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)
		private.GET("/admin/stats", adminOnly, entityHandler.Stats)

		entityRoutes := private.Group("/entities")
		entityRoutes.Use(adminOnly)
		{
			entityRoutes.GET("", entityHandler.Names)
			entityRoutes.GET("/:name", entityHandler.List)
			entityRoutes.POST("/:name", entityHandler.Create)
			entityRoutes.GET("/:name/:id", entityHandler.Get)
			entityRoutes.PUT("/:name/:id", entityHandler.Update)
			entityRoutes.DELETE("/:name/:id", entityHandler.Delete)
		}
	}

	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
