package api

import (
	"embed"
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templates embed.FS

func SetupRoutes(router *gin.Engine, handler *Handler, publicDir string, allowedOrigins []string) {
	router.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))
	router.Use(corsMiddleware(allowedOrigins))

	router.GET("/healthz", handler.Health)

	// Sessions are created by the page and by POST /api/session only
	site := router.Group("/", handler.Session(true))
	{
		site.GET("/", handler.Page)
		site.POST("/", handler.SubmitPage)
	}

	api := router.Group("/api")
	{
		api.GET("/options", handler.GetOptions)
		api.POST("/session", handler.Session(true), handler.GetSession)

		sess := api.Group("/session", handler.Session(false))
		sess.GET("", handler.GetSession)
		sess.PUT("/form/:field", handler.UpdateField)
		sess.POST("/predict", handler.Predict)
		sess.GET("/map", handler.GetMap)
	}

	// Static district lists, e.g. /Bogor.json
	router.NoRoute(staticJSON(publicDir))
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func staticJSON(publicDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := path.Clean("/" + c.Request.URL.Path)
		if c.Request.Method != http.MethodGet || !strings.HasSuffix(name, ".json") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		file := filepath.Join(publicDir, filepath.FromSlash(name))
		if info, err := os.Stat(file); err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(file)
	}
}
