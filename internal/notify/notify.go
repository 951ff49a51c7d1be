// Package notify renders the HTML body of the generated-summary
// notification email.
package notify

import (
	"html/template"
	"strings"
)

// disclaimer is appended to every generated notification.
const disclaimer = "AI-generated Email: it's important to note that while the AI strives for accuracy, " +
	"it may not always fully understand or appropriately respond to certain contexts or nuances. " +
	"If you have any concerns about the content of this email, please feel free to reach out by "

var bodyTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div class="container">
<div class="content">
<p>{{.Content}}</p>
</div>
<div class="footer">
<p>{{.Disclaimer}}{{.Contact}}</p>
</div>
</div>
</body>
</html>
`))

// Summary is the content of one notification body.
type Summary struct {
	// Title goes into the document title, normally the subject.
	Title string
	// Content is the drafted reply text; newlines become line breaks.
	Content string
	// Contact is the address readers can escalate to.
	Contact string
}

// Render produces the HTML body for a summary notification.
func Render(s Summary) (string, error) {
	content := template.HTMLEscapeString(s.Content)
	content = strings.ReplaceAll(content, "\n", "<br>")

	var b strings.Builder
	err := bodyTemplate.Execute(&b, struct {
		Title      string
		Content    template.HTML
		Disclaimer string
		Contact    string
	}{
		Title:      s.Title,
		Content:    template.HTML(content),
		Disclaimer: disclaimer,
		Contact:    s.Contact,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
