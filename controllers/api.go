package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mihomoctl/internal/errs"
	"mihomoctl/services"
)

type APIController struct {
	sm *services.ServiceManager
}

/**
 * Create new API controller instance
 * @param {*services.ServiceManager} sm - Service manager bound to the managed kernel
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(sm *services.ServiceManager) *APIController {
	return &APIController{sm: sm}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Service lifecycle: status/start/stop/restart/reload
 * - /metrics exposes the prometheus registry
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/status", a.Status)
	v1.POST("/service/start", a.StartService)
	v1.POST("/service/stop", a.StopService)
	v1.POST("/service/restart", a.RestartService)
	v1.POST("/reload", a.ReloadConfig)
}

// 错误类别到HTTP状态码的映射
func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindAuth:
		return http.StatusUnauthorized
	case errs.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{
		"code":    string(errs.KindOf(err)),
		"message": err.Error(),
	})
}

// @Summary 就绪探针
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// @Summary 查询服务状态
// @Description 返回进程状态机状态、PID、默认版本、当前配置和控制面地址
// @Tags Service
// @Produce json
// @Success 200 {object} services.ServiceStatus
// @Router /api/v1/status [get]
func (a *APIController) Status(c *gin.Context) {
	status, err := a.sm.Status(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, status)
}

// @Summary 启动内核
// @Tags Service
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "已在运行"
// @Router /api/v1/service/start [post]
func (a *APIController) StartService(c *gin.Context) {
	if err := a.sm.Start(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success"})
}

// @Summary 停止内核
// @Tags Service
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/service/stop [post]
func (a *APIController) StopService(c *gin.Context) {
	if err := a.sm.Stop(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success"})
}

// @Summary 重启内核
// @Description 停止后按最新的默认版本和当前配置重新启动
// @Tags Service
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/service/restart [post]
func (a *APIController) RestartService(c *gin.Context) {
	if err := a.sm.Restart(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success"})
}

// @Summary 热加载配置
// @Description 校验当前配置后让内核重新加载，不重启进程
// @Tags Config
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "配置校验失败"
// @Router /api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if err := a.sm.Reload(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success"})
}
