// Package browser manages the page source of the scraper.
//
// # Engines
//
// Two engines implement the same small interface set (Launcher, Session,
// Page, Element):
//
//   - Playwright: headless Chromium driven through playwright-go. One
//     browser context, with the configured user agent, is shared by every
//     page of a scrape run.
//   - Static: plain HTTP GET. No JavaScript runs and nothing is clickable,
//     so every detail page yields only its initial snapshot. Useful where
//     no browser is installed.
//
// # Snapshots
//
// CaptureSnapshots walks a detail page the way a reader would: it records
// the initial text, then clicks every visible and enabled element matched by
// each trigger (tabs, "view benefits" buttons, modal links), recording the
// page text after each click and pressing Escape to close any modal.
// Failures of single interactions are ignored; bank sites routinely have
// hidden duplicates of their tab bars.
//
// # Usage
//
//	session, err := browser.NewLauncher(cfg).Launch(ctx)
//	defer session.Close()
//	page, err := session.NewPage(ctx)
//	err = page.Goto(ctx, url, cfg.DetailTimeout)
//	snaps, err := browser.CaptureSnapshots(ctx, page, strategy.TabsToClick, opts)
package browser
