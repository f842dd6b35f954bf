package httpserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"mediaplayer/internal/media"
)

// shareForm shows the expiry selection form for one file.
func (s *Server) shareForm(c *gin.Context) {
	if !s.shares.Available() {
		s.fail(c, media.ErrStoreUnavailable)
		return
	}
	raw := strings.TrimSpace(c.Query("path"))
	if _, err := s.resolver.Resolve(raw, media.ResolveOpts{MustBeFile: true}); err != nil {
		s.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "share.html", gin.H{
		"Path":       raw,
		"DefaultTTL": s.shares.DefaultTTL().String(),
	})
}

// shareCreate creates a share (or reuses the active one for the same
// path string) and redirects to the result page.
func (s *Server) shareCreate(c *gin.Context) {
	raw := strings.TrimSpace(c.PostForm("path"))
	choice := media.ExpiryChoice{
		Choice: c.PostForm("expires"),
		Value:  c.PostForm("custom_value"),
		Unit:   c.PostForm("custom_unit"),
	}

	share, reused, err := s.shares.CreateOrReuse(raw, choice)
	if err != nil {
		s.fail(c, err)
		return
	}
	if reused {
		s.log.Debug("existing share reused", "path", raw)
	}
	c.Redirect(http.StatusFound, "/share/result?token="+url.QueryEscape(share.Token))
}

// shareResult shows the public URL and state for a token.
func (s *Server) shareResult(c *gin.Context) {
	token := c.Query("token")
	share, err := s.shares.GetByToken(token)
	if err != nil {
		s.fail(c, err)
		return
	}
	if share == nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}

	data := gin.H{
		"Token":     share.Token,
		"Path":      share.FilePath,
		"PublicURL": s.publicURL(share.Token),
		"Active":    s.shares.IsActive(share),
		"Revoked":   c.Query("revoked") == "1",
	}
	if share.ExpiresAt != nil {
		data["ExpiresAt"] = share.ExpiresAt.Format("2006-01-02 15:04 UTC")
	}
	c.HTML(http.StatusOK, "share_result.html", data)
}

// shareRevoke revokes a token and redirects back to the result page.
// Revoking twice is a no-op.
func (s *Server) shareRevoke(c *gin.Context) {
	token := c.PostForm("token")
	changed, err := s.shares.Revoke(token)
	if err != nil {
		s.fail(c, err)
		return
	}
	target := "/share/result?token=" + url.QueryEscape(token)
	if changed {
		target += "&revoked=1"
	}
	c.Redirect(http.StatusFound, target)
}

// publicView serves a shared file by token. Absent, expired and revoked
// tokens are indistinguishable from the outside; the stored path is
// re-resolved on every hit.
func (s *Server) publicView(c *gin.Context) {
	token := c.Param("token")
	share, abs, err := s.shares.ResolveToken(token)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.serveFile(c, abs, "/v/"+share.Token, wantsHTML(c))
}
