package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"
)

// allowedDocs maps a /doc/:doc name to its file and page title
var allowedDocs = map[string]struct {
	file  string
	title string
}{
	"README":      {"README.md", "Project Overview"},
	"API":         {"docs/API.md", "API Reference"},
	"DEVELOPMENT": {"docs/DEVELOPMENT.md", "Development Guide"},
}

type DocsHandler struct {
	root string
}

// NewDocsHandler serves documents found under root
func NewDocsHandler(root string) *DocsHandler {
	return &DocsHandler{root: root}
}

// ServeMarkdownAsHTML serves Markdown files as HTML with consistent styling
func (h *DocsHandler) ServeMarkdownAsHTML(c *gin.Context) {
	doc, exists := allowedDocs[c.Param("doc")]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	content, err := os.ReadFile(filepath.Join(h.root, doc.file))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags,
	})
	htmlContent := blackfriday.Run(content, blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions))

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, wrapWithTheme(string(htmlContent), doc.title))
}

// wrapWithTheme wraps the HTML content with consistent styling
func wrapWithTheme(content, title string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + ` - Author's Haven</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; background: #f8f9fa; padding: 20px; margin: 0; }
        .container { max-width: 1000px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #7c3aed 0%, #a78bfa 100%); color: white; padding: 2rem; margin-bottom: 2rem; border-radius: 12px; text-align: center; }
        .header a { color: white; opacity: 0.8; text-decoration: none; }
        .content { background: white; padding: 3rem; border-radius: 12px; border: 1px solid #e5e7eb; }
        .content h1 { border-bottom: 2px solid #e5e7eb; padding-bottom: 0.5rem; margin-top: 0; }
        .content h2 { color: #7c3aed; }
        .content pre { background: #1f2937; color: #f9fafb; padding: 1rem; border-radius: 8px; overflow-x: auto; }
        .content code { background: #f3f4f6; padding: 0.2rem 0.4rem; border-radius: 4px; }
        .content pre code { background: none; padding: 0; }
        .content table { border-collapse: collapse; width: 100%; }
        .content th, .content td { border: 1px solid #e5e7eb; padding: 0.5rem 0.75rem; text-align: left; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>` + title + `</h1>
            <div class="breadcrumb"><a href="/doc/README">Author's Haven</a> / ` + title + `</div>
        </div>
        <div class="content">
` + content + `
        </div>
    </div>
</body>
</html>`
}
