package browser

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto"
	"github.com/go-rod/rod"
	rodcdp "github.com/go-rod/rod/lib/cdp"
	"github.com/pkg/errors"

	"gitlab.com/browserstep/harness"
)

func TestDetached(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"stale", errors.Wrap(harness.ErrStaleElement, "reading"), true},
		{"box model", &cdproto.Error{Code: -32000, Message: "Could not compute box model."}, true},
		{"wrapped node", errors.Wrap(&cdproto.Error{Code: -32000, Message: "No node with given id found"}, "resolving"), true},
		{"rod object", &rod.ObjectNotFoundError{}, true},
		{"rod context", rodcdp.ErrCtxNotFound, true},
		{"session gone", &cdproto.Error{Code: -32001, Message: "Session with given id not found."}, false},
		{"rod session gone", rodcdp.ErrSessionNotFound, false},
		{"cancelled", context.Canceled, false},
		{"transport", errors.New("websocket: close 1006 (abnormal closure)"), false},
	}
	for _, c := range cases {
		if got := detached(c.err); got != c.want {
			t.Fatalf("%s: expected %v got %v\n", c.name, c.want, got)
		}
	}
}
