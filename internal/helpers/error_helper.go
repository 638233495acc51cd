package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: customMessage,
	})
}

// RespondInvalidVoucher is the `{valid:false}` shape the voucher validation
// endpoint returns for structural rejections.
func RespondInvalidVoucher(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"valid":   false,
		"message": message,
	})
}
