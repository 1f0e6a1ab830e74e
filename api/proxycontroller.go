package api

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"tourloop/config"
)

// HandleProxyImage refetches a remote asset server-side so browsers blocked
// by cross-origin rules can still load it. Only known CDN/storage hosts are
// relayed; anything else is rejected to avoid running an open proxy.
// GET /api/proxy-image?url=<encoded>
func (s *Server) HandleProxyImage(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}
	if !allowedProxyHost(target.Hostname()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "host not allowed"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ Proxy fetch failed for %s: %v", target, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetch failed"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream returned non-200"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, nil)
}

func allowedProxyHost(host string) bool {
	for _, known := range config.ProxyImageHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}
