package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/sports-meet/pkg/models"
)

var (
	info = models.MeetInfo{Name: "Spring Games", Edition: 12, SchoolName: "No. 1 Middle School"}
	gold = models.Result{StudentName: "Li Lei", EventName: "100m", Score: "12.8", Rank: 1, Points: 10}
	day  = time.Date(2025, 4, 18, 9, 0, 0, 0, time.UTC)
)

func TestRenderDefaultTemplate(t *testing.T) {
	uri, err := NewRenderer().Render(info, gold, day)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, DataURIPrefix))

	svg, err := Decode(uri)
	require.NoError(t, err)
	assert.Contains(t, svg, "<foreignObject")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(svg))
	require.NoError(t, err)
	assert.Equal(t, "Spring Games", doc.Find(".meet-name").Text())
	assert.Equal(t, "12", doc.Find(".edition").Text())
	assert.Equal(t, "Li Lei", doc.Find(".student-name").Text())
	assert.Equal(t, "1", doc.Find(".rank").Text())
	assert.Equal(t, "12.8", doc.Find(".score").Text())
	assert.Equal(t, "10", doc.Find(".points").Text())
	assert.Equal(t, "2025-04-18", doc.Find(".date").Text())
}

func TestRenderEscapesNames(t *testing.T) {
	r := gold
	r.StudentName = `<script>alert(1)</script>`
	html, err := NewRenderer().RenderHTML(info, r, day)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestCustomTemplate(t *testing.T) {
	r, err := WithTemplate(`<p>Well done <b class="student-name"></b> in <i class="event-name"></i></p>`)
	require.NoError(t, err)
	html, err := r.RenderHTML(info, gold, day)
	require.NoError(t, err)
	assert.Equal(t, `<p>Well done <b class="student-name">Li Lei</b> in <i class="event-name">100m</i></p>`, html)

	_, err = WithTemplate(`<p>no fields here</p>`)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestDecodeRejectsOtherURIs(t *testing.T) {
	_, err := Decode("blob:http://localhost/abc")
	assert.Error(t, err)
}
