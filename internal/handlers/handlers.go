package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"realtyhub/internal/metrics"
	"realtyhub/internal/middleware"
	"realtyhub/internal/models"
	"realtyhub/internal/ratelimit"
	"realtyhub/internal/rbac"
	"realtyhub/internal/service"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Properties   *service.PropertyService
	Agents       *service.AgentService
	Contacts     *service.ContactService
	Testimonials *service.TestimonialService
	Analytics    *service.AnalyticsService
	Uploads      *service.UploadService
}

type HandlerSet struct {
	log         zerolog.Logger
	environment string
	svc         Services
	checks      []HealthCheck
	metrics     *metrics.Metrics
	limiter     *ratelimit.Limiter
}

type Option func(*HandlerSet)

func WithEnvironment(env string) Option {
	return func(h *HandlerSet) { h.environment = env }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *HandlerSet) { h.metrics = m }
}

// WithRateLimit limits every /api route except health and metrics.
func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(h *HandlerSet) { h.limiter = l }
}

func WithHealthCheck(check HealthCheck) Option {
	return func(h *HandlerSet) { h.checks = append(h.checks, check) }
}

func NewHandlerSet(log zerolog.Logger, svc Services, opts ...Option) *HandlerSet {
	h := &HandlerSet{log: log, svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("")
	if h.limiter != nil {
		api.Use(middleware.RateLimit(h.limiter, h.log, h.metrics))
	}

	authn := middleware.Auth(h.svc.Auth, h.log, h.metrics)
	perm := middleware.RequirePermission

	api.POST("/auth", h.AuthAction)

	users := api.Group("/users", authn)
	{
		withID(users, http.MethodGet, perm(rbac.UsersView), h.GetUsers)
		users.POST("", perm(rbac.UsersCreate), h.CreateUser)
		withID(users, http.MethodPut, h.UpdateUser)
		withID(users, http.MethodDelete, perm(rbac.UsersDelete), h.DeactivateUser)
		// Only admins manage grants, whatever permissions the caller holds.
		managers := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
		users.POST("/:id/permissions", managers, perm(rbac.UsersEdit), h.GrantPermission)
		users.DELETE("/:id/permissions/:permission", managers, perm(rbac.UsersEdit), h.RevokePermission)
	}
	api.GET("/permissions", authn, perm(rbac.UsersView), h.ListPermissions)

	properties := api.Group("/properties")
	{
		withID(properties, http.MethodGet, h.GetProperties)
		properties.POST("", authn, perm(rbac.PropertiesCreate), h.CreateProperty)
		withID(properties, http.MethodPut, authn, perm(rbac.PropertiesEdit), h.UpdateProperty)
		withID(properties, http.MethodDelete, authn, perm(rbac.PropertiesDelete), h.DeleteProperty)
	}

	agents := api.Group("/agents")
	{
		withID(agents, http.MethodGet, h.GetAgents)
		agents.POST("", authn, perm(rbac.AgentsCreate), h.CreateAgent)
		withID(agents, http.MethodPut, authn, perm(rbac.AgentsEdit), h.UpdateAgent)
		withID(agents, http.MethodDelete, authn, perm(rbac.AgentsDelete), h.DeleteAgent)
	}

	contact := api.Group("/contact")
	{
		withID(contact, http.MethodGet, authn, perm(rbac.MessagesView), h.GetMessages)
		contact.POST("", h.SubmitMessage)
		withID(contact, http.MethodPut, authn, perm(rbac.MessagesRespond), h.UpdateMessage)
		withID(contact, http.MethodDelete, authn, perm(rbac.MessagesDelete), h.DeleteMessage)
	}

	testimonials := api.Group("/testimonials")
	{
		withID(testimonials, http.MethodGet, middleware.OptionalAuth(h.svc.Auth), h.GetTestimonials)
		testimonials.POST("", h.SubmitTestimonial)
		withID(testimonials, http.MethodPut, authn, perm(rbac.SettingsEdit), h.UpdateTestimonial)
		withID(testimonials, http.MethodDelete, authn, perm(rbac.SettingsEdit), h.DeleteTestimonial)
	}

	api.GET("/analytics", authn, perm(rbac.SettingsView), h.GetAnalytics)
	api.POST("/analytics", h.TrackView)

	upload := api.Group("/upload", authn)
	{
		upload.POST("", middleware.RequireAnyPermission(rbac.PropertiesCreate, rbac.PropertiesEdit), h.Upload)
		upload.DELETE("", perm(rbac.PropertiesDelete), h.DeleteUpload)
	}
}

// NotFound and MethodNotAllowed answer unrouted requests in the API's error shape.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
}

// withID routes both /resource?id=... and /resource/:id to the same chain.
func withID(g *gin.RouterGroup, method string, chain ...gin.HandlerFunc) {
	g.Handle(method, "", chain...)
	g.Handle(method, "/:id", chain...)
}
