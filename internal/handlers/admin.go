package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"authors-haven/internal/models"
	"authors-haven/internal/services"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"golang.org/x/net/html"
	"gorm.io/gorm"
)

// AdminHandler handles the admin interface
type AdminHandler struct {
	db           *gorm.DB
	interactions *services.InteractionService
	password     string
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, interactions *services.InteractionService, password string) *AdminHandler {
	return &AdminHandler{
		db:           db,
		interactions: interactions,
		password:     password,
	}
}

// AdminAuth middleware for basic password protection
func (h *AdminHandler) AdminAuth() gin.HandlerFunc {
	return gin.BasicAuth(gin.Accounts{
		"admin": h.password,
	})
}

// SiteStats are row counts shown on the dashboard
type SiteStats struct {
	Users         int64 `json:"users"`
	ActiveUsers   int64 `json:"active_users"`
	Articles      int64 `json:"articles"`
	Comments      int64 `json:"comments"`
	Replies       int64 `json:"replies"`
	Reports       int64 `json:"reports"`
	Notifications int64 `json:"notifications"`
}

func (h *AdminHandler) stats(c *gin.Context) (SiteStats, error) {
	db := h.db.WithContext(c.Request.Context())
	var s SiteStats
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &s.Users},
		{db.Model(&models.User{}).Where("is_active = ?", true), &s.ActiveUsers},
		{db.Model(&models.Article{}), &s.Articles},
		{db.Model(&models.Comment{}), &s.Comments},
		{db.Model(&models.CommentReply{}), &s.Replies},
		{db.Model(&models.Report{}), &s.Reports},
		{db.Model(&models.Notification{}), &s.Notifications},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			return s, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return s, nil
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	s, err := h.stats(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": s})
}

// ServeAdminDashboard serves the main admin dashboard
func (h *AdminHandler) ServeAdminDashboard(c *gin.Context) {
	s, err := h.stats(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="stats">`)
	for _, card := range []struct {
		label string
		value int64
	}{
		{"Users", s.Users},
		{"Active users", s.ActiveUsers},
		{"Articles", s.Articles},
		{"Comments", s.Comments},
		{"Replies", s.Replies},
		{"Reports", s.Reports},
		{"Notifications", s.Notifications},
	} {
		fmt.Fprintf(&b, `<div class="stat"><span class="value">%s</span><span class="label">%s</span></div>`,
			humanize.Comma(card.value), card.label)
	}
	b.WriteString(`</div><p><a href="/admin/reports">Review reports</a></p>`)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, adminPage("Dashboard", b.String()))
}

// ServeReportsPage handles GET /admin/reports
func (h *AdminHandler) ServeReportsPage(c *gin.Context) {
	reports, err := h.interactions.AllReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
		return
	}

	var b strings.Builder
	if len(reports) == 0 {
		b.WriteString(`<p class="empty">No reports yet.</p>`)
	} else {
		b.WriteString(`<table><thead><tr><th>Article</th><th>Reporter</th><th>Reason</th><th>Reported</th></tr></thead><tbody>`)
		for _, r := range reports {
			fmt.Fprintf(&b, `<tr><td><a href="/api/articles/%s">%s</a></td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				html.EscapeString(r.Article.Slug),
				html.EscapeString(r.Article.Title),
				html.EscapeString(r.Reporter.Username),
				html.EscapeString(r.Reason),
				humanize.Time(r.CreatedAt))
		}
		b.WriteString(`</tbody></table>`)
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, adminPage(fmt.Sprintf("Reports (%d)", len(reports)), b.String()))
}

func adminPage(title, content string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + ` - Author's Haven Admin</title>
    <style>
        body { font-family: 'Inter', -apple-system, BlinkMacSystemFont, sans-serif; margin: 0; background: #f8fafc; color: #1e293b; }
        header { background: #1e293b; color: white; padding: 1rem 2rem; }
        header a { color: #cbd5e1; margin-right: 1rem; text-decoration: none; }
        main { max-width: 1100px; margin: 2rem auto; padding: 0 1rem; }
        .stats { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 1rem; }
        .stat { background: white; border-radius: 8px; padding: 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
        .stat .value { display: block; font-size: 1.75rem; font-weight: 600; }
        .stat .label { color: #64748b; font-size: 0.875rem; }
        table { width: 100%; border-collapse: collapse; background: white; }
        th, td { text-align: left; padding: 0.75rem; border-bottom: 1px solid #e2e8f0; }
        .empty { color: #64748b; }
    </style>
</head>
<body>
    <header><strong>Author's Haven Admin</strong> &nbsp; <a href="/admin">Dashboard</a><a href="/admin/reports">Reports</a><a href="/admin/worker">Worker</a></header>
    <main>
        <h1>` + title + `</h1>
        ` + content + `
    </main>
</body>
</html>`
}
