package browser

import (
	"github.com/chromedp/cdproto"
	"github.com/go-rod/rod"
	rodcdp "github.com/go-rod/rod/lib/cdp"
	"github.com/pkg/errors"

	"gitlab.com/browserstep/harness"
)

// detached reports whether err means the node left the document, which counts
// as not visible. Transport and context faults are not detachment.
func detached(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, harness.ErrStaleElement) {
		return true
	}
	// protocol level replies for nodes chrome no longer knows about
	var protoErr *cdproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code == -32000
	}
	if errors.Is(err, &rod.ObjectNotFoundError{}) {
		return true
	}
	var rodErr *rodcdp.Error
	if errors.As(err, &rodErr) {
		return rodErr.Code == -32000
	}
	return false
}
