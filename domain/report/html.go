package report

import (
	"bytes"
	"fmt"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem;color:#1a1a2e}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #cbd5e1;padding:0.35rem 0.75rem;text-align:left}
th{background:#f1f5f9}
code{background:#f1f5f9;padding:0.1rem 0.3rem;border-radius:3px}`

// RenderHTML renders the report as a standalone HTML page, converting the
// markdown form so the two renderings never drift apart.
func RenderHTML(r Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(RenderMarkdown(r)))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	body := markdown.Render(doc, renderer)

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n", r.Title(), pageStyle)
	page.Write(body)
	page.WriteString("</body>\n</html>\n")
	return page.Bytes()
}
