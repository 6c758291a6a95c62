package middleware

import (
	"time"

	"github.com/annel0/levelforge/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader — заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет одну строку лога на запрос.
// Пути из quiet логируются на уровне DEBUG (health-check, /metrics).
type RequestLogger struct {
	quiet map[string]bool
}

func NewRequestLogger(quietPaths ...string) *RequestLogger {
	rl := &RequestLogger{quiet: make(map[string]bool, len(quietPaths))}
	for _, p := range quietPaths {
		rl.quiet[p] = true
	}
	return rl
}

// traceID берёт идентификатор из span OpenTelemetry, затем из заголовка, иначе создаёт новый
func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	if id := c.GetHeader(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set("trace_id", id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log := logging.Info
		if rl.quiet[path] {
			log = logging.Debug
		}
		log("[HTTP] %s %s %d %s ip=%s trace=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), id)
	}
}
