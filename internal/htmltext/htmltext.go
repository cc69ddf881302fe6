// htmltext превращает HTML-фрагменты из лент и API в простой текст.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clean убирает теги и схлопывает пробелы. Строка без '<' и '&' возвращается
// после схлопывания пробелов без разбора.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	if !strings.Contains(s, "<") && !strings.Contains(s, "&") {
		return collapse(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return collapse(s)
	}

	// script/style не несут текста статьи.
	doc.Find("script, style").Remove()

	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
