// Package file stores chatrag settings as a TOML file under the config
// directory. Nested tables are exposed as dot-separated keys.
package file
