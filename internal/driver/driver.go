// Package driver abstracts the browser session that renders the chat web
// UI. The dispatch core only sees this narrow capability set; everything
// about the UI's actual markup lives behind it. Selector strings are opaque
// here and meaningful only to the implementation.
package driver

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when no selector candidate yields a usable element
// within the timeout budget.
var ErrTimeout = errors.New("driver: timed out waiting for element")

// KeyEnter is the special-key token understood by Element.SendKeys.
const KeyEnter = "{enter}"

// Element is a handle to a located UI element.
type Element interface {
	Click(ctx context.Context) error
	IsDisplayed(ctx context.Context) (bool, error)
	IsClickable(ctx context.Context) (bool, error)
	SendKeys(ctx context.Context, text string) error
}

// Driver is the capability set consumed by the send protocol. The find
// methods take ordered candidate selectors and return the first match that
// satisfies the visibility/clickability condition; the timeout budget is
// shared across all candidates.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	FindVisible(ctx context.Context, candidates []string, timeout time.Duration) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	WaitClickable(ctx context.Context, candidates []string, timeout time.Duration) (Element, error)
	Close() error
}
