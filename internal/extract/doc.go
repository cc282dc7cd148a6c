// Package extract turns rendered bank pages into scraper data.
//
// # Components
//
//   - ParseListing: finds cards on a listing page using a bank's selectors
//   - Parser: reduces an HTML page to its title and visible text
//   - NormalizeText: canonical form of captured text
//
// Listing pages are parsed from HTML rather than through live browser
// locators. The browser engine hands over page.Content() and the static
// engine hands over the HTTP body, so both engines share one extraction
// path and it can be tested without a browser.
//
// # Usage
//
//	links, err := extract.ParseListing(strings.NewReader(html), listURL, strategy)
package extract
