// Package config provides the configuration of the spider: crawl settings,
// database credentials and network infrastructure options.
//
// Values are layered. NewConfig supplies defaults, a YAML file (see File)
// overrides them, environment variables override the file, and CLI flags
// override everything.
package config
