package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

// HandlerFunction returns the response instead of writing it, so every
// handler answers with the same envelope.
type HandlerFunction func(*RequestContext) *ServiceResult

// ServiceResult is rendered as {"code", "data", "message"} unless it carries
// an Attachment.
type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`

	Attachment *Attachment `json:"-"`
}

// Attachment is written verbatim with a Content-Disposition header.
type Attachment struct {
	Filename    string
	ContentType string
	Body        []byte
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) ToJSON() gin.H {
	return gin.H{
		"code":    result.StatusCode,
		"data":    result.Data,
		"message": result.Message,
	}
}
