package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON error envelope shared by handlers and middleware
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error builds an error body. The lowercase code doubles as the short error string.
func Error(code, message string) ErrorBody {
	return ErrorBody{
		Error:   errorText(code),
		Code:    code,
		Message: message,
	}
}

// Abort writes an error body and stops the handler chain
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Error(code, message))
}

func errorText(code string) string {
	b := []byte(code)
	for i, ch := range b {
		switch {
		case ch >= 'A' && ch <= 'Z':
			b[i] = ch + ('a' - 'A')
		case ch == '_':
			b[i] = ' '
		}
	}
	return string(b)
}
