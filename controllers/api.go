package controllers

import (
	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/models"
	"fcc-bootstrap/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Backing server for status and diagnostics
 * @returns {*APIController} New API controller instance
 * @example
 * server := services.NewServer(&config.Config, certs, probe)
 * controller := controllers.NewAPIController(server)
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Liveness (/healthz) and Prometheus scraping (/metrics)
 *   - Install status, certificate check and the root authority download
 *   - Configuration reload
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/fcc/api/v1")
	api.GET("/status", a.Status)
	api.POST("/check", a.Check)
	api.GET("/check", a.LastCheck)
	api.GET("/ca.crt", a.CACert)
	api.POST("/reload", a.ReloadConfig)
}

// @Summary 重新加载配置
// @Description 重新加载应用配置文件
// @Tags Config
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /fcc/api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if err := config.ReloadConfig(); err != nil {
		c.JSON(500, models.ErrorResponse{
			Code:  "config.reload_failed",
			Error: "Failed to reload configuration: " + err.Error(),
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "success",
		"message": "Configuration reloaded successfully",
	})
}

// @Summary 安装状态
// @Description 返回安装标记、桌面入口、推导出的运行模式和缓存的运行时
// @Tags Bootstrap
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /fcc/api/v1/status [get]
func (a *APIController) Status(c *gin.Context) {
	c.JSON(200, a.server.Status())
}

// @Summary 证书检查
// @Description 立即执行本地证书健康检查
// @Tags Bootstrap
// @Produce json
// @Success 200 {object} models.CertHealthReport
// @Router /fcc/api/v1/check [post]
func (a *APIController) Check(c *gin.Context) {
	c.JSON(200, a.server.Check(c.Request.Context()))
}

// @Summary 最近一次证书检查
// @Tags Bootstrap
// @Produce json
// @Success 200 {object} models.CertHealthReport
// @Failure 404 {object} models.ErrorResponse
// @Router /fcc/api/v1/check [get]
func (a *APIController) LastCheck(c *gin.Context) {
	report := a.server.LastCheck()
	if report == nil {
		c.JSON(404, models.ErrorResponse{Code: "check.not_run", Error: "No certificate check has run yet"})
		return
	}
	c.JSON(200, report)
}

// @Summary 下载根证书
// @Description 返回本地根证书(PEM)，用于手动导入信任库
// @Tags Bootstrap
// @Produce application/x-pem-file
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Router /fcc/api/v1/ca.crt [get]
func (a *APIController) CACert(c *gin.Context) {
	path := a.server.CACertPath()
	if path == "" {
		c.JSON(404, models.ErrorResponse{Code: "cert.not_found", Error: "Local root authority has not been created"})
		return
	}
	c.Header("Content-Type", "application/x-pem-file")
	c.FileAttachment(path, "FCC-Local-Root-CA.crt")
}

// @Summary 业务就绪探针
// @Description 返回服务版本、启动时间和运行时长
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(200, a.server.GetHealthz())
}
