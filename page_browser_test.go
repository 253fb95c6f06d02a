package htmlizer

import (
	"context"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

// newBrowser starts headless Chrome, skipping the test when none is installed.
func newBrowser(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("Chrome not installed")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.UserAgent("htmlizer-browser-test"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, 30*time.Second)

	return ctx, func() {
		timeoutCancel()
		cancel()
		allocCancel()
	}
}

func TestPage_BrowserReceivesPush(t *testing.T) {
	ctx, cancel := newBrowser(t)
	defer cancel()

	page, title, items := newTestPage(t)
	srv := httptest.NewServer(page.Handler())
	defer srv.Close()

	var heading string
	err := chromedp.Run(ctx,
		chromedp.Navigate(srv.URL),
		chromedp.WaitVisible("#htmlizer-root h1", chromedp.ByQuery),
		chromedp.Text("#htmlizer-root h1", &heading, chromedp.ByQuery),
	)
	if err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
	if heading != "Todo" {
		t.Errorf("heading = %q, want %q", heading, "Todo")
	}

	deadline := time.Now().Add(5 * time.Second)
	for page.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if page.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", page.Clients())
	}

	if _, err := page.Update(func() {
		title.Set("Groceries")
		items.Push("bread")
	}); err != nil {
		t.Fatal(err)
	}

	var last string
	var count int
	err = chromedp.Run(ctx,
		chromedp.WaitVisible(`//li[text()="bread"]`, chromedp.BySearch),
		chromedp.Text("#htmlizer-root h1", &heading, chromedp.ByQuery),
		chromedp.Text("#htmlizer-root li:last-child", &last, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelectorAll("#htmlizer-root li").length`, &count),
	)
	if err != nil {
		t.Fatalf("pushed update not applied: %v", err)
	}
	if heading != "Groceries" || last != "bread" || count != 2 {
		t.Errorf("after push: heading=%q last=%q count=%d", heading, last, count)
	}
}
