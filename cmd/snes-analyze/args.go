package main

import (
	"strconv"
	"strings"

	snesanalyze "snes-analyze"
)

// fetchArg returns args[i], or a missing-argument error naming arg.
func fetchArg(args []string, i int, name string) (string, error) {
	if i >= len(args) {
		return "", newMissingArg(name)
	}
	return args[i], nil
}

// integerArg parses args[i] as a hexadecimal integer, with an optional
// leading "$" or "0x".
func integerArg(args []string, i int, name string) (int, error) {
	s, err := fetchArg(args, i, name)
	if err != nil {
		return 0, err
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "$")
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, newParseIntErr()
	}
	return int(v), nil
}

// stringArg returns args[i] verbatim.
func stringArg(args []string, i int, name string) (string, error) {
	return fetchArg(args, i, name)
}

// rangeArg parses args[i] in the form "x..y" (both hex) into [start, end).
func rangeArg(args []string, i int, name string) (int, int, error) {
	s, err := fetchArg(args, i, name)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.SplitN(s, "..", 2)
	if len(parts) != 2 {
		return 0, 0, newParseIntErr()
	}
	lo, err := strconv.ParseInt(strings.TrimPrefix(parts[0], "$"), 16, 32)
	if err != nil {
		return 0, 0, newParseIntErr()
	}
	hi, err := strconv.ParseInt(strings.TrimPrefix(parts[1], "$"), 16, 32)
	if err != nil {
		return 0, 0, newParseIntErr()
	}
	return int(lo), int(hi), nil
}

// restArgs returns every remaining token from i onward.
func restArgs(args []string, i int) []string {
	if i >= len(args) {
		return nil
	}
	return args[i:]
}

func newMissingArg(name string) error {
	return snesanalyze.NewError(snesanalyze.ErrMissingArg, strings.ToUpper(name))
}

func newParseIntErr() error {
	return snesanalyze.NewError(snesanalyze.ErrParseInt, "")
}
