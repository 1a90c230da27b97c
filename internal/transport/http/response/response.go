package response

import "github.com/gin-gonic/gin"

// The guest widget and staff dashboard read bare JSON bodies, so success
// payloads are written as-is and failures as {error[, details]}.

type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}

func ErrorWithDetails(c *gin.Context, httpStatus int, message, details string) {
	c.JSON(httpStatus, ErrorBody{Error: message, Details: details})
}

func Abort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Error: message})
}
