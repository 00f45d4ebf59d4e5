package mock

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/pkg/errors"
)

var registry = new(require.Registry)

// evaluate runs expr in a fresh runtime with a few page helpers bound:
//
//	exists(xpath) bool
//	textOf(xpath) string
//	count(css) int
//
// plus console.log. Caller holds mu.
func (s *Session) evaluate(expr string) (bool, error) {
	vm := goja.New()
	registry.Enable(vm)
	console.Enable(vm)

	vm.Set("exists", func(xpath string) bool {
		nodes, err := htmlquery.QueryAll(s.doc, xpath)
		return err == nil && len(nodes) > 0
	})
	vm.Set("textOf", func(xpath string) string {
		n, err := htmlquery.Query(s.doc, xpath)
		if err != nil || n == nil {
			return ""
		}
		return strings.TrimSpace(htmlquery.InnerText(n))
	})
	vm.Set("count", func(css string) int {
		return goquery.NewDocumentFromNode(s.doc).Find(css).Length()
	})

	v, err := vm.RunString(expr)
	if err != nil {
		return false, errors.Wrap(err, "evaluating script")
	}
	return v.ToBoolean(), nil
}
