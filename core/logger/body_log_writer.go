package logger

import (
	"bytes"

	"github.com/gin-gonic/gin"
)

// BodyLogWriter tees the response body into a buffer so the monitoring
// middleware can log it after the handler runs.
type BodyLogWriter struct {
	gin.ResponseWriter
	Body *bytes.Buffer
}

// Write buffers the bytes and forwards them to the real writer.
func (w BodyLogWriter) Write(b []byte) (int, error) {
	w.Body.Write(b)
	return w.ResponseWriter.Write(b)
}
