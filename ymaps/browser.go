package ymaps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosom/scrapemate"
)

const (
	structuralTimeout = 10 * time.Second
	settleTimeout     = 500 * time.Millisecond
)

// hideAutomationSignals removes the webdriver flag the Yandex frontend
// checks before rendering search results. This is a correctness requirement
// of the target site, not cosmetics: with the flag set the result list
// never materializes.
func hideAutomationSignals(page scrapemate.BrowserPage) {
	_, _ = page.Eval(`() => {
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	}`)
}

// submitSearch fills the search input with the composed query and invokes
// the submit control. The value is set through the native property setter
// so the SPA's change tracking picks it up, then the submit button (or the
// enclosing form) is triggered.
func submitSearch(page scrapemate.BrowserPage, query string) error {
	quoted, err := json.Marshal(query)
	if err != nil {
		return err
	}

	expr := fmt.Sprintf(`() => {
		const input = document.querySelector("`+searchInputSelector+`");
		if (!input) return false;
		input.focus();
		const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
		setter.call(input, %s);
		input.dispatchEvent(new Event('input', { bubbles: true }));
		const button = document.querySelector("`+searchSubmitSelector+`");
		if (button) {
			button.click();
			return true;
		}
		const form = input.closest('form');
		if (form) {
			form.requestSubmit ? form.requestSubmit() : form.submit();
			return true;
		}
		return false;
	}`, quoted)

	res, err := page.Eval(expr)
	if err != nil {
		return err
	}

	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("search submit control not found")
	}

	return nil
}

// scrollResults scrolls the result list until at least target snippet nodes
// are rendered or the rendered count stops growing. It returns the number
// of snippet nodes visible after the last scroll.
//
// Each scroll waits inside the page for lazy content to land before
// re-counting, and the wait grows on stale rounds, so correctness does not
// hinge on a fixed sleep matching the network speed.
func scrollResults(ctx context.Context, page scrapemate.BrowserPage, target int) (int, error) {
	scrollExpr := `async () => {
		const list = document.querySelector("` + resultListSelector + `");
		const el = (list && (list.closest('.scroll__container') || list)) || document.scrollingElement;
		el.scrollTop = el.scrollHeight;

		return new Promise((resolve) => {
			setTimeout(() => {
				resolve(document.querySelectorAll("` + snippetSelector + `").length);
			}, %d);
		});
	}`

	const (
		maxStaleRetries  = 3    // stop after 3 scrolls with no new snippets
		baseJsWaitMs     = 1000 // base wait for lazy content after a scroll
		staleExtraWaitMs = 1000 // extra wait per stale retry
		maxJsWaitMs      = 5000
		betweenScrollMs  = 500 // throttle between scrolls
	)

	var rendered int

	staleCount := 0

	for rendered < target {
		select {
		case <-ctx.Done():
			return rendered, nil
		default:
		}

		jsWait := baseJsWaitMs + staleCount*staleExtraWaitMs
		if jsWait > maxJsWaitMs {
			jsWait = maxJsWaitMs
		}

		res, err := page.Eval(fmt.Sprintf(scrollExpr, jsWait))
		if err != nil {
			return rendered, err
		}

		// go-rod returns float64 for numbers
		var count int
		switch v := res.(type) {
		case int:
			count = v
		case float64:
			count = int(v)
		default:
			return rendered, fmt.Errorf("snippet count is not a number, got %T", res)
		}

		if count <= rendered {
			staleCount++
			if staleCount >= maxStaleRetries {
				break // no more results are loading
			}

			continue
		}

		staleCount = 0
		rendered = count

		page.WaitForTimeout(betweenScrollMs * time.Millisecond)
	}

	return rendered, nil
}
