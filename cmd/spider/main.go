// Package main provides the entry point for the spider CLI.
//
// spider crawls web pages from a seed URL up to a given link depth, saves
// every page to a database and its HTML to local files, and lists what was
// saved.
//
// Usage:
//
//	spider crawl <url> [--depth N] [--concur N]
//	spider catch <url> [-n 10]
//	spider cobweb create|drop|count
//
// See --help for all available options.
package main

import "os"

// main is the entry point for spider.
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
