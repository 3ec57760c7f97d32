package export

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/russross/blackfriday"
)

const ReportContentType = "text/html; charset=utf-8"

// ErrEmptyFeedback is returned when a report is requested without feedback.
var ErrEmptyFeedback = errors.New("feedback is empty")

// Report is an estimation result as shown to the instructor.
type Report struct {
	Score       string // may be empty when no score was extracted
	Feedback    string // markdown from the model
	GeneratedAt time.Time
}

const markdownExtensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
	blackfriday.EXTENSION_TABLES |
	blackfriday.EXTENSION_FENCED_CODE |
	blackfriday.EXTENSION_AUTOLINK |
	blackfriday.EXTENSION_STRIKETHROUGH |
	blackfriday.EXTENSION_SPACE_HEADERS

// Raw HTML in the feedback is dropped; only markdown is rendered.
const htmlFlags = blackfriday.HTML_USE_XHTML |
	blackfriday.HTML_SKIP_HTML |
	blackfriday.HTML_SKIP_STYLE |
	blackfriday.HTML_SAFELINK

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>Результат оценки</title>
<style>
body { font-family: sans-serif; max-width: 48em; margin: 2em auto; line-height: 1.5; }
.meta { color: #555; }
pre { background: #f4f4f4; padding: .5em; overflow-x: auto; }
</style>
</head>
<body>
<h1>Результат оценки</h1>
<p class="meta">Дата: {{.Date}}</p>
{{if .Score}}<p class="meta">Оценка: <b>{{.Score}}</b></p>
{{end}}<h2>Обратная связь:</h2>
{{.Body}}
</body>
</html>
`))

// EstimationReport renders r as a standalone HTML page.
func EstimationReport(r Report) ([]byte, error) {
	feedback := strings.TrimSpace(r.Feedback)
	if feedback == "" {
		return nil, ErrEmptyFeedback
	}

	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	body := blackfriday.Markdown([]byte(feedback), renderer, markdownExtensions)

	var buf bytes.Buffer
	err := reportPage.Execute(&buf, struct {
		Date  string
		Score string
		Body  template.HTML
	}{
		Date:  r.GeneratedAt.UTC().Format("02.01.2006 15:04:05"),
		Score: strings.TrimSpace(r.Score),
		Body:  template.HTML(body),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
