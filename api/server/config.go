package server

import (
	"net/http"

	"actioncore/internal/config"

	"github.com/gin-gonic/gin"
)

const maskedSecret = "******"

// GetConfigResponse 获取配置响应
type GetConfigResponse struct {
	Config config.Config `json:"config"`
}

// redacted copies cfg with credentials masked.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Database.Password != "" {
		out.Database.Password = maskedSecret
	}
	if out.Elasticsearch.Password != "" {
		out.Elasticsearch.Password = maskedSecret
	}
	return out
}

// getConfig 获取运行中的配置，密码已脱敏
func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, GetConfigResponse{
		Config: redacted(s.config),
	})
}
