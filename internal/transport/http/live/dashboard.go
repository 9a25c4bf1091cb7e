package livehttp

import (
	"embed"
	"io/fs"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

//go:embed admin/*
var dashboardAssets embed.FS

func registerDashboardRoutes(router *gin.Engine) {
	sub, err := fs.Sub(dashboardAssets, "admin")
	if err != nil {
		return
	}

	serveFile := func(name string, c *gin.Context) {
		data, err := fs.ReadFile(sub, name)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, mimeType(name), data)
	}

	router.GET("/", func(c *gin.Context) { serveFile("index.html", c) })
	router.GET("/admin/:asset", func(c *gin.Context) { serveFile(c.Param("asset"), c) })
}

func mimeType(name string) string {
	switch path.Ext(name) {
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript"
	default:
		return "text/html; charset=utf-8"
	}
}
