package workflow

import (
	"fmt"
	"strings"
)

// xpathLiteral quotes s as an XPath string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	return `concat("` + strings.Join(parts, `", '"', "`) + `")`
}

// linkXPath matches a link whose visible text is exactly label.
func linkXPath(label string) string {
	return fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathLiteral(label))
}

// rowXPath matches the first table row holding a cell whose text is exactly code.
func rowXPath(code string) string {
	return fmt.Sprintf(`(//tr[td[normalize-space(.)=%s]])[1]`, xpathLiteral(code))
}

// cellXPath matches the zero based column-th cell of row.
func cellXPath(row string, column int) string {
	return fmt.Sprintf(`%s/td[%d]`, row, column+1)
}
