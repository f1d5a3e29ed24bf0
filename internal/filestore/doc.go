// Package filestore keeps the raw HTML of crawled pages on disk.
//
// Every page is written to its own file named after the page host and a
// random UUID, e.g. www_example_com_<uuid4>.html. The database stores the
// returned path as the page's content locator.
package filestore
