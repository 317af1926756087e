package parser

import shellwords "github.com/mattn/go-shellwords"

// Argv splits a single `.rc` record (a full `run`-style command line,
// as used by the taichi service's /services/_load_.rc and
// /programs/_load_.rc) into argv, honoring shell quoting the way a
// user typing at the console would expect.
func Argv(line string) ([]string, error) {
	return shellwords.Parse(line)
}
