package routes

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/qalite/config"
	"github.com/cppla/qalite/controllers"
	"github.com/cppla/qalite/middleware"
	"github.com/cppla/qalite/router"
	"github.com/cppla/qalite/utils"
)

// Services are the board services the gateway dispatches to.
type Services struct {
	Questions controllers.Service
	Answers   controllers.Service
	Users     controllers.Service
	Browse    controllers.Service
}

// SetupRouter wires middlewares and hands every non-health request to the
// service owning its path prefix.
func SetupRouter(cfg config.AppConfig, svc Services, log *zap.Logger) *gin.Engine {
	switch cfg.Gin.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*")
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RateLimit(cfg.App.RateLimitPerMinute))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Service paths are matched by prefix, so they bypass gin's route tree.
	r.NoRoute(dispatch(svc, allowAll, log.Sugar()))
	return r
}

// serviceFor picks the service owning path. /questions/{id}/answers belongs
// to the answer service; every other /questions path to the question service.
func serviceFor(svc Services, path string) controllers.Service {
	parts := router.Segments(path)
	if len(parts) == 0 {
		return nil
	}
	switch parts[0] {
	case "questions":
		if len(parts) == 3 && parts[2] == "answers" {
			return svc.Answers
		}
		return svc.Questions
	case "answers":
		return svc.Answers
	case "users":
		return svc.Users
	case "browse":
		return svc.Browse
	}
	return nil
}

func dispatch(svc Services, allowAll bool, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		service := serviceFor(svc, ctx.Request.URL.Path)
		if service == nil {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}
		query := map[string]string{}
		for key, values := range ctx.Request.URL.Query() {
			if len(values) > 0 {
				query[key] = values[0]
			}
		}

		resp, err := service.Handle(ctx.Request.Context(), &utils.Request{
			Method: ctx.Request.Method,
			Path:   ctx.Request.URL.Path,
			Query:  query,
			Body:   string(body),
		})
		if err != nil {
			log.Errorw("service error", "method", ctx.Request.Method, "path", ctx.Request.URL.Path, "error", err)
			_ = ctx.Error(err)
			resp = utils.Message(http.StatusInternalServerError, "Internal server error")
		}
		write(ctx, resp, allowAll)
	}
}

// write copies the envelope onto the gin response. CORS headers already set
// by the middleware win, and a restricted origin list drops the envelope's
// wildcard altogether.
func write(ctx *gin.Context, resp *utils.Response, allowAll bool) {
	for key, value := range resp.Headers {
		if strings.HasPrefix(key, "Access-Control-") {
			if !allowAll || ctx.Writer.Header().Get(key) != "" {
				continue
			}
		}
		ctx.Header(key, value)
	}
	contentType := resp.Headers["Content-Type"]
	if contentType == "" {
		contentType = "application/json"
	}
	ctx.Data(resp.StatusCode, contentType, []byte(resp.Body))
}
