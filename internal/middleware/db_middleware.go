package middleware

import (
	"github.com/farandiarsa/hematku/internal/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("logger", log)
		c.Next()
	}
}

func GetLogger(c *gin.Context) *logger.Logger {
	log, exists := c.Get("logger")
	if !exists {
		return logger.NewNop()
	}
	return log.(*logger.Logger)
}
