// Package config handles configuration loading, parsing, and validation from
// defaults, an optional config file, SCRY_ environment variables and command
// line flags. Later sources override earlier ones.
package config
