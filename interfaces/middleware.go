package interfaces

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staffable/application"
	"staffable/domain"
)

const (
	requestIDKey = "request-id"
	loggerKey    = "logger"
)

// LoggerFrom returns the request logger set by RequestLogger.
func LoggerFrom(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logrus.Entry); ok {
			return l
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func setLogger(c *gin.Context, l *logrus.Entry) {
	c.Set(loggerKey, l)
	c.Request = c.Request.WithContext(application.WithLogger(c.Request.Context(), l))
}

// RequestLogger tags the request with an id, taken from header when the
// caller sent one, and logs its start and completion.
func RequestLogger(log *logrus.Logger, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(header)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(header, requestID)

		entry := log.WithFields(logrus.Fields{
			"request-id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		setLogger(c, entry)
		entry.WithFields(logrus.Fields{
			"ip":         c.ClientIP(),
			"user-agent": c.Request.UserAgent(),
		}).Debug("request started")

		c.Next()

		LoggerFrom(c).WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"size":     c.Writer.Size(),
		}).Info("request completed")
	}
}

// Recovery turns a panic into a 500 error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				LoggerFrom(c).WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic while handling request")
				if c.Writer.Written() {
					c.Abort()
					return
				}
				respondError(c, fmt.Errorf("panic: %v", r))
			}
		}()
		c.Next()
	}
}

// requireSession resolves the session cookie into a principal carried by the
// request context.
func (h *HTTPHandler) requireSession(c *gin.Context) {
	sid, err := c.Cookie(h.opts.CookieName)
	if err != nil || sid == "" {
		respondError(c, domain.ErrUnauthorized)
		return
	}
	sess, err := h.auth.Resolve(c.Request.Context(), sid)
	if err != nil {
		h.clearCookie(c)
		respondError(c, err)
		return
	}

	c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), sess.Principal()))
	setLogger(c, LoggerFrom(c).WithFields(logrus.Fields{"user": sess.UserID, "role": sess.Role}))
	c.Next()
}

// authorize checks the principal's role against the matched route pattern.
func (h *HTTPHandler) authorize(c *gin.Context) {
	p, err := domain.MustPrincipal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.authz.Authorize(p.Role, c.FullPath(), c.Request.Method); err != nil {
		respondError(c, err)
		return
	}
	c.Next()
}

func (h *HTTPHandler) setCookie(c *gin.Context, sess domain.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, sess.ID, maxAge, "/", "", h.opts.CookieSecure, true)
}

func (h *HTTPHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, "", -1, "/", "", h.opts.CookieSecure, true)
}
