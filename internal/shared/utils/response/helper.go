package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes an error envelope carrying a machine readable code such as SEAT_UNAVAILABLE.
func RespondError(c *gin.Context, httpStatus int, code, message string, err error) {
	body := StandardApiResponse{
		Status:     "error",
		StatusCode: httpStatus,
		Code:       code,
		Message:    message,
	}
	if err != nil {
		body.Errors = err.Error()
	}
	c.JSON(httpStatus, body)
}
