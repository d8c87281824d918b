// Package certificate renders award certificates as SVG data URIs.
//
// A template is an HTML fragment whose elements are located by class name
// (.meet-name, .edition, .student-name, .event-name, .rank, .score, .points,
// .school-name, .date). The filled fragment is wrapped in an SVG
// foreignObject and base64 encoded.
package certificate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/timoknapp/sports-meet/pkg/models"
)

const (
	DataURIPrefix = "data:image/svg+xml;base64,"
	// DefaultTemplateID is recorded on certificates rendered from the built-in template.
	DefaultTemplateID = "default"

	width  = 800
	height = 600
)

var ErrInvalidTemplate = errors.New("certificate template has no fillable fields")

// Selectors lists the class selectors a template may use.
var Selectors = []string{
	".meet-name", ".edition", ".student-name", ".event-name", ".rank",
	".score", ".points", ".school-name", ".date",
}

const defaultTemplate = `<div class="certificate" style="width:800px;height:600px;padding:40px;box-sizing:border-box;background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);font-family:sans-serif;color:white;text-align:center;">
  <div style="border:8px solid #ffd700;padding:40px;height:100%;box-sizing:border-box;">
    <div style="font-size:36px;font-weight:bold;margin-bottom:30px;">Certificate of Honour</div>
    <div style="font-size:20px;margin-bottom:40px;line-height:1.8;">
      <span class="meet-name"></span><br/>Sports Meet No. <span class="edition"></span>
    </div>
    <div style="font-size:28px;font-weight:bold;margin-bottom:20px;">
      <span class="student-name" style="font-size:48px;color:#ffd700;"></span>
    </div>
    <div style="font-size:24px;margin-bottom:40px;">
      <strong class="event-name" style="color:#ffd700;"></strong><br/>
      Rank <strong class="rank" style="color:#ffd700;"></strong>
    </div>
    <div style="font-size:20px;margin-bottom:40px;">
      Score: <strong class="score" style="color:#ffd700;"></strong><br/>
      Points: <strong class="points" style="color:#ffd700;"></strong>
    </div>
    <div class="school-name" style="font-size:18px;margin-top:60px;color:#ffd700;"></div>
    <div class="date" style="font-size:16px;margin-top:10px;"></div>
  </div>
</div>`

// Renderer fills a certificate template.
type Renderer struct {
	template string
}

// NewRenderer uses the built-in template.
func NewRenderer() *Renderer {
	return &Renderer{template: defaultTemplate}
}

// WithTemplate returns a renderer for custom HTML. The template must contain
// at least one of the Selectors.
func WithTemplate(html string) (*Renderer, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if doc.Find(strings.Join(Selectors, ", ")).Length() == 0 {
		return nil, ErrInvalidTemplate
	}
	return &Renderer{template: html}, nil
}

// Fields returns the text placed into each selector for a result.
func Fields(info models.MeetInfo, result models.Result, now time.Time) map[string]string {
	return map[string]string{
		".meet-name":    info.Name,
		".edition":      strconv.Itoa(info.Edition),
		".student-name": result.StudentName,
		".event-name":   result.EventName,
		".rank":         strconv.Itoa(result.Rank),
		".score":        result.Score,
		".points":       strconv.Itoa(result.Points),
		".school-name":  info.SchoolName,
		".date":         now.Format("2006-01-02"),
	}
}

// RenderHTML returns the filled template markup.
func (r *Renderer) RenderHTML(info models.MeetInfo, result models.Result, now time.Time) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.template))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	for selector, text := range Fields(info, result, now) {
		// SetText escapes, so names cannot inject markup.
		doc.Find(selector).SetText(text)
	}
	html, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return strings.TrimSpace(html), nil
}

// Render returns the certificate as a data:image/svg+xml;base64 URI.
func (r *Renderer) Render(info models.MeetInfo, result models.Result, now time.Time) (string, error) {
	html, err := r.RenderHTML(info, result, now)
	if err != nil {
		return "", err
	}
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><foreignObject width="%d" height="%d"><div xmlns="http://www.w3.org/1999/xhtml">%s</div></foreignObject></svg>`,
		width, height, width, height, html)
	return DataURIPrefix + base64.StdEncoding.EncodeToString([]byte(svg)), nil
}

// Decode returns the SVG document held in a data URI produced by Render.
func Decode(uri string) (string, error) {
	if !strings.HasPrefix(uri, DataURIPrefix) {
		return "", fmt.Errorf("not an svg data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
