package web

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/discuss"
	"github.com/nasermirzaei89/vidtube/notifications"
	"github.com/nasermirzaei89/vidtube/reactions"
	"github.com/prometheus/client_golang/prometheus"
)

type Handler struct {
	mux              *http.ServeMux
	handler          http.Handler
	authSvc          *authentication.Service
	contentsSvc      contents.Service
	discussSvc       discuss.Service
	reactionsSvc     reactions.Service
	notificationsSvc notifications.Service
	limiter          *ipLimiter
	registry         *prometheus.Registry
	metrics          *httpMetrics
}

var _ http.Handler = (*Handler)(nil)

type Option func(h *Handler)

// WithRateLimit limits the public authentication routes per client address.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(h *Handler) {
		if rps <= 0 {
			h.limiter = nil

			return
		}

		h.limiter = newIPLimiter(rps, burst)
	}
}

func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) {
		h.registry = reg
	}
}

func NewHandler(
	authSvc *authentication.Service,
	contentsSvc contents.Service,
	discussSvc discuss.Service,
	reactionsSvc reactions.Service,
	notificationsSvc notifications.Service,
	opts ...Option,
) *Handler {
	h := &Handler{
		mux:              nil,
		handler:          nil,
		authSvc:          authSvc,
		contentsSvc:      contentsSvc,
		discussSvc:       discussSvc,
		reactionsSvc:     reactionsSvc,
		notificationsSvc: notificationsSvc,
		limiter:          newIPLimiter(DefaultRateLimitRPS, DefaultRateLimitBurst),
		registry:         nil,
		metrics:          nil,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}

	h.metrics = newHTTPMetrics(h.registry)

	{
		h.mux = &http.ServeMux{}
		h.handler = h.mux

		h.registerRoutes()
	}

	{
		h.handler = h.authMiddleware(h.handler)
		h.handler = loggingMiddleware(h.handler)
		h.handler = recoverMiddleware(h.handler)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, h.metrics.instrument(pattern, handler))
}

func (h *Handler) registerRoutes() {
	h.mux.Handle("GET /healthz", h.HandleHealth())
	h.mux.Handle("GET /metrics", h.metrics.handler)

	h.handle("POST /auth/signup", h.rateLimited(h.HandleSignup()))
	h.handle("POST /auth/verify", h.rateLimited(h.HandleVerify()))
	h.handle("POST /auth/login", h.rateLimited(h.HandleLogin()))

	h.handle("POST /users/forgot-password-otp", h.rateLimited(h.HandleForgotPassword()))
	h.handle("POST /users/reset-password", h.rateLimited(h.HandleResetPassword()))
	h.handle("POST /users/update-info", h.requireAuth(h.HandleUpdateProfile()))

	h.handle("POST /videos/upload-video", h.requireAuth(h.HandleUploadVideo()))
	h.handle("GET /videos/{id}", h.requireAuth(h.HandleGetVideo()))
	h.handle("PATCH /videos/{id}", h.requireAuth(h.HandleUpdateVideo()))
	h.handle("DELETE /videos/{id}", h.requireAuth(h.HandleDeleteVideo()))
	h.handle("PATCH /videos/like/{id}", h.requireAuth(h.HandleLikeVideo()))
	h.handle("PATCH /videos/dislike/{id}", h.requireAuth(h.HandleDislikeVideo()))

	h.handle("POST /videos/{id}/comment", h.requireAuth(h.HandleCreateComment()))
	h.handle("GET /videos/{id}/comments", h.requireAuth(h.HandleListComments()))
	h.handle("GET /videos/{videoId}/comment/{commentId}", h.requireAuth(h.HandleGetComment()))
	h.handle("PATCH /videos/{videoId}/comment/{commentId}", h.requireAuth(h.HandleUpdateComment()))
	h.handle("DELETE /videos/{videoId}/comment/{commentId}", h.requireAuth(h.HandleDeleteComment()))
	h.handle("POST /videos/{videoId}/comment/{commentId}/reply", h.requireAuth(h.HandleCreateReply()))
	h.handle("GET /videos/{videoId}/comment/{commentId}/replies", h.requireAuth(h.HandleListReplies()))
	h.handle("DELETE /videos/{videoId}/comment/{commentId}/reply/{replyId}", h.requireAuth(h.HandleDeleteReply()))
	h.handle(
		"POST /videos/{videoId}/comment/{commentId}/reply/{replyId}/reply",
		h.requireAuth(h.HandleCreateChildReply()),
	)
	h.handle(
		"DELETE /videos/{videoId}/comment/{commentId}/reply/{replyId}/reply/{childId}",
		h.requireAuth(h.HandleDeleteChildReply()),
	)

	h.handle("GET /notification", h.requireAuth(h.HandleListNotifications()))
	h.handle("PATCH /notification/read-notification/{id}", h.requireAuth(h.HandleReadNotification()))

	h.mux.Handle("/", h.HandleNotFound())
}

func (h *Handler) HandleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (h *Handler) HandleNotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NotFound", "route not found")
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				writeError(w, r, http.StatusInternalServerError, "InternalServerError", "internal error occurred")
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := newStatusRecorder(w)
		start := time.Now()

		next.ServeHTTP(sr, r)

		slog.DebugContext(
			r.Context(),
			"request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"durationMs", time.Since(start).Milliseconds(),
			"remoteIp", clientIP(r),
		)
	})
}
