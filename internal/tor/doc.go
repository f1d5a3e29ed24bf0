// Package tor routes the spider through the Tor network.
//
// Daemon starts an embedded Tor process with tornago and exposes its SOCKS
// listener as a socks5h proxy URL, which the crawler's fetcher dials like
// any other SOCKS proxy. Host names are resolved by Tor, so .onion sites
// can be crawled.
//
// CheckProxy verifies that an address speaks SOCKS5 before a crawl starts.
package tor
