package handler

import "github.com/labstack/echo/v4"

// SuccessResponse writes the uniform success envelope.
func SuccessResponse(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// ErrorResponse writes the uniform error envelope. errorCode is the
// machine-readable kind; detail carries the underlying error text verbatim.
func ErrorResponse(c echo.Context, code int, message, errorCode, detail string) error {
	body := map[string]interface{}{
		"success": false,
		"message": message,
		"error": map[string]interface{}{
			"code":   errorCode,
			"detail": detail,
		},
	}
	return c.JSON(code, body)
}
