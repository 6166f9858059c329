package middleware

import (
	"log/slog"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
)

const clientAddrContextKey = "client_addr"

// ClientAddr is the resolved address of the caller in both families. A field
// is empty when the address has no representation in that family.
type ClientAddr struct {
	IP   string
	IPv4 string
	IPv6 string
}

// ClassifyIP splits ip into its IPv4 and IPv6 forms. The IPv6 loopback maps to
// 127.0.0.1 and IPv4-mapped IPv6 addresses yield their IPv4 part.
func ClassifyIP(ip string) ClientAddr {
	addr := ClientAddr{IP: ip}
	if ip == "" {
		return addr
	}

	parsed, err := netip.ParseAddr(ip)
	if err != nil {
		if strings.Contains(ip, ":") {
			addr.IPv6 = ip
		} else {
			addr.IPv4 = ip
		}
		return addr
	}

	switch {
	case parsed.Is4():
		addr.IPv4 = ip
	case parsed.Is4In6():
		addr.IPv6 = ip
		addr.IPv4 = parsed.Unmap().String()
	default:
		addr.IPv6 = ip
		if parsed.IsLoopback() {
			addr.IPv4 = "127.0.0.1"
		}
	}
	return addr
}

// ClientIP resolves the caller address with gin's ClientIP, which honors the
// engine's trusted proxies, and stores the classified result on the context.
// The address is attached to the request's log attributes as client_ip.
func ClientIP(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		addr := ClassifyIP(c.ClientIP())
		c.Set(clientAddrContextKey, addr)

		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String("client_ip", addr.IP))
		c.Request = c.Request.WithContext(ctx)

		log.DebugContext(ctx, "client address",
			slog.String("ipv4", orNotAvailable(addr.IPv4)),
			slog.String("ipv6", orNotAvailable(addr.IPv6)),
		)

		c.Next()
	}
}

// GetClientAddr returns the address stored by ClientIP. Without the
// middleware it classifies c.ClientIP() on the fly.
func GetClientAddr(c *gin.Context) ClientAddr {
	if v, ok := c.Get(clientAddrContextKey); ok {
		if addr, ok := v.(ClientAddr); ok {
			return addr
		}
	}
	return ClassifyIP(c.ClientIP())
}

func orNotAvailable(s string) string {
	if s == "" {
		return "not available"
	}
	return s
}
