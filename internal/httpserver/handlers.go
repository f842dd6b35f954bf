package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"mediaplayer/internal/media"
)

// browseItem is one directory entry in the listing.
type browseItem struct {
	Name  string
	Path  string // slash-separated path relative to root
	IsDir bool
	Icon  string
}

// browse lists a directory under the root, or redirects to the viewer
// when the path points at a file.
func (s *Server) browse(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("path"))

	abs, err := s.resolver.Resolve(raw, media.ResolveOpts{})
	if err != nil {
		s.fail(c, err)
		return
	}

	info, err := os.Stat(abs)
	if err != nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}
	if !info.IsDir() {
		c.Redirect(http.StatusFound, "/view?path="+url.QueryEscape(raw))
		return
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}
	// Directories first, then case-insensitive by name.
	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	rel := relToRoot(s.resolver.Root(), abs)
	items := make([]browseItem, 0, len(entries))
	for _, entry := range entries {
		item := browseItem{
			Name:  entry.Name(),
			Path:  path.Join(rel, entry.Name()),
			IsDir: entry.IsDir(),
		}
		switch {
		case entry.IsDir():
			item.Name += "/"
			item.Icon = "dir"
		default:
			switch media.Classify(entry.Name()).Kind {
			case media.KindVideo:
				item.Icon = "video"
			case media.KindImage:
				item.Icon = "image"
			case media.KindAudio:
				item.Icon = "audio"
			default:
				item.Icon = "file"
			}
		}
		items = append(items, item)
	}

	data := gin.H{
		"CurrentPath": "/" + rel,
		"Items":       items,
		"HasParent":   rel != "",
		"ParentPath":  path.Dir(rel),
	}
	if rel == "" {
		data["CurrentPath"] = "/"
	}
	if data["ParentPath"] == "." {
		data["ParentPath"] = ""
	}
	c.HTML(http.StatusOK, "browse.html", data)
}

// view serves a file from the root: a viewer page when the client wants
// HTML, the raw bytes otherwise.
func (s *Server) view(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("path"))

	abs, err := s.resolver.Resolve(raw, media.ResolveOpts{MustBeFile: true})
	if err != nil {
		s.fail(c, err)
		return
	}

	streamURL := "/view?path=" + url.QueryEscape(raw)
	s.serveFile(c, abs, streamURL, wantsHTML(c))
}

// wantsHTML reports whether the client asked for a viewer page rather
// than the raw stream.
func wantsHTML(c *gin.Context) bool {
	switch strings.ToLower(c.Query("embed")) {
	case "1", "true", "yes":
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// serveFile renders a viewer page or streams the file, depending on its
// classification and what the client accepts. abs must already be a
// resolved in-root file path.
func (s *Server) serveFile(c *gin.Context, abs, streamURL string, asHTML bool) {
	ft := media.Classify(abs)

	if asHTML {
		name := filepath.Base(abs)
		switch ft.Kind {
		case media.KindVideo:
			c.HTML(http.StatusOK, "view_video.html", gin.H{"Name": name, "StreamURL": streamURL})
			return
		case media.KindImage:
			c.HTML(http.StatusOK, "view_image.html", gin.H{"Name": name, "StreamURL": streamURL})
			return
		case media.KindAudio:
			c.HTML(http.StatusOK, "view_audio.html", gin.H{"Name": name, "StreamURL": streamURL})
			return
		case media.KindText:
			s.serveTextPage(c, abs, name, streamURL)
			return
		case media.KindUnknown:
			c.HTML(http.StatusOK, "view_download.html", gin.H{"Name": name, "StreamURL": streamURL})
			return
		}
	}

	s.stream(c, abs, ft)
}

// serveTextPage inlines a text file up to the size ceiling; above it only
// a placeholder with the raw link is shown.
func (s *Server) serveTextPage(c *gin.Context, abs, name, streamURL string) {
	info, err := os.Stat(abs)
	if err != nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}
	if info.Size() > media.TextInlineLimit {
		c.HTML(http.StatusOK, "view_text.html", gin.H{
			"Name":      name,
			"StreamURL": streamURL,
			"TooLarge":  true,
		})
		return
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}
	c.HTML(http.StatusOK, "view_text.html", gin.H{
		"Name":      name,
		"StreamURL": streamURL,
		"Content":   string(content),
	})
}

// stream sends the file bytes. ServeContent handles Range requests, so
// video seeking works without re-reading whole files. Unknown types are
// only ever offered as opaque downloads.
func (s *Server) stream(c *gin.Context, abs string, ft media.FileType) {
	f, err := os.Open(abs)
	if err != nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.fail(c, media.ErrPathNotFound)
		return
	}

	if ft.Kind == media.KindUnknown {
		c.Header("Content-Type", "application/octet-stream")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	} else {
		c.Header("Content-Type", ft.ContentType)
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// relToRoot returns the slash-separated path of abs relative to root, or
// "" for the root itself.
func relToRoot(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
