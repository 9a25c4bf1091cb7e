package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ltpbot/internal/logger"
	"ltpbot/internal/session"
	"ltpbot/internal/store"
	"ltpbot/internal/types"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// Controller 由 session.Controller 实现。
type Controller interface {
	Start(ctx context.Context, cfg types.SessionConfig) error
	Stop(ctx context.Context) error
	Status() session.Status
	Orders() []types.Order
	Logs() []string
	Journal(ctx context.Context, scripCode, limit int) ([]store.OrderAttempt, error)
}

// Router 暴露会话控制与查询接口。
type Router struct {
	session Controller
}

func NewRouter(ctrl Controller) *Router {
	return &Router{session: ctrl}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/status", r.handleStatus)
	group.GET("/orders", r.handleOrders)
	group.GET("/logs", r.handleLogs)
	group.GET("/journal", r.handleJournal)
}

func (r *Router) handleStart(c *gin.Context) {
	var cfg types.SessionConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		writeError(c, http.StatusBadRequest, "invalid start payload: "+err.Error())
		return
	}
	if err := r.session.Start(c.Request.Context(), cfg); err != nil {
		if errors.Is(err, session.ErrAlreadyRunning) {
			writeError(c, http.StatusBadRequest, "Bot is already running.")
			return
		}
		logger.Warnf("start rejected: %v", err)
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Bot started successfully."})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.session.Stop(c.Request.Context()); err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			writeError(c, http.StatusBadRequest, "Bot is not running.")
			return
		}
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Bot stopped."})
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.session.Status())
}

func (r *Router) handleOrders(c *gin.Context) {
	orders := r.session.Orders()
	c.JSON(http.StatusOK, gin.H{"total_orders": len(orders), "orders": orders})
}

func (r *Router) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": r.session.Logs()})
}

func (r *Router) handleJournal(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultJournalLimit)
	if err != nil || limit <= 0 {
		writeError(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxJournalLimit {
		limit = maxJournalLimit
	}
	scrip, err := queryInt(c, "scrip_code", 0)
	if err != nil || scrip < 0 {
		writeError(c, http.StatusBadRequest, "scrip_code must be a positive integer")
		return
	}
	rows, err := r.session.Journal(c.Request.Context(), scrip, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": rows})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"status": "error", "message": msg})
}
