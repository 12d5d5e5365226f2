package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
)

// Run executes actions on a session's page. The run is bounded by timeout and
// cancelled when ctx is; the page itself outlives both.
func Run(ctx context.Context, sess interfaces.Session, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pageCtx := sess.Context()
	if err := pageCtx.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrSessionUnavailable, err)
	}

	runCtx, cancel := context.WithTimeout(pageCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}
