package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"tradesync/internal/broadcast"
	"tradesync/internal/broker"
	"tradesync/internal/logger"
	"tradesync/internal/service"
	"tradesync/internal/store"
	"tradesync/internal/store/alertlog"
)

// webhook 请求体里告警文本可能挂在的键（Discord/IFTTT/Twitter 转发各不相同）
var messageKeys = []string{"message", "alert", "content", "text"}

// timestampKeys 可选时间戳键，仅回显
var timestampKeys = []string{"timestamp", "time"}

// Router 挂载 webhook 与仪表盘查询接口
type Router struct {
	Service *service.AlertService
	Store   store.AlertStore
	Broker  broker.Broker
	Hub     *broadcast.Hub
	Audit   *alertlog.AuditLog
}

// Register 注册全部路由
func (r *Router) Register(engine *gin.Engine) {
	engine.POST("/webhook", r.handleWebhook)
	engine.GET("/api/trades", r.handleRecords)
	engine.GET("/api/alerts", r.handleRecords)
	engine.POST("/api/trades/:id/close", r.handleMarkClosed)
	engine.GET("/api/quote/:symbol", r.handleQuote)
	engine.GET("/api/portfolio", r.handlePortfolio)
	engine.GET("/health", r.handleHealth)
	if r.Audit != nil {
		engine.GET("/api/raw_alerts", r.handleRawAlerts)
	}
	if r.Hub != nil {
		engine.GET("/ws", func(c *gin.Context) {
			r.Hub.HandleWS(c.Writer, c.Request)
		})
	}
}

// handleWebhook 告警入口。缺文本字段 → 400；处理过的业务失败 → 200 + status 字段；
// 落库失败 → 500。
func (r *Router) handleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}
	parsed := gjson.ParseBytes(body)
	var message string
	for _, key := range messageKeys {
		if v := parsed.Get(key); v.Exists() && strings.TrimSpace(v.String()) != "" {
			message = v.String()
			break
		}
	}
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}
	var timestamp string
	for _, key := range timestampKeys {
		if v := parsed.Get(key); v.Exists() {
			timestamp = v.String()
			break
		}
	}

	result, err := r.Service.HandleAlert(c.Request.Context(), message)
	if err != nil {
		logger.Errorf("webhook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error(), "timestamp": timestamp})
		return
	}
	resp := gin.H{"status": result.Status, "trace_id": result.TraceID}
	if result.Action != "" {
		resp["action"] = result.Action
	}
	if result.OrderID != "" {
		resp["order_id"] = result.OrderID
	}
	if result.Error != "" {
		resp["error"] = result.Error
	}
	if result.RecordID != 0 {
		resp["record_id"] = result.RecordID
	}
	if timestamp != "" {
		resp["timestamp"] = timestamp
	}
	c.JSON(http.StatusOK, resp)
}

// handleRecords 最近记录，倒序。limit 默认 50，越界由存储层钳制。
func (r *Router) handleRecords(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	records, err := r.Service.ListRecords(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// handleMarkClosed 人工标记一条记录已平仓（审计注记，不触发交易）
func (r *Router) handleMarkClosed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	if err := r.Store.MarkClosed(c.Request.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id})
}

// handleQuote 最新报价透传
func (r *Router) handleQuote(c *gin.Context) {
	if r.Broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broker not configured"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	quote, err := r.Broker.GetLatestQuote(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// handlePortfolio 透传券商账户快照
func (r *Router) handlePortfolio(c *gin.Context) {
	if r.Broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broker not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	acct, err := r.Broker.GetAccount(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	positions, err := r.Broker.ListPositions(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cash":         acct.Cash,
		"equity":       acct.Equity,
		"buying_power": acct.BuyingPower,
		"currency":     acct.Currency,
		"positions":    positions,
	})
}

// handleRawAlerts 解析前的告警原文，用于排查解析问题
func (r *Router) handleRawAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := r.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": entries, "count": len(entries)})
}

// handleHealth 存活探针，连带检查存储可达性
func (r *Router) handleHealth(c *gin.Context) {
	if r.Store != nil {
		if err := r.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
