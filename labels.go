package snesanalyze

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	subroutineLabelPrefix = "sub_"
	localLabelPrefix      = "loc_"
)

var identifierRe = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*$`)

// defaultSubroutineLabel returns the default sub_XXXXXX label for pc.
func defaultSubroutineLabel(pc int) string {
	return fmt.Sprintf("%s%06X", subroutineLabelPrefix, pc)
}

// defaultLocalLabel returns the default loc_XXXXXX label for pc.
func defaultLocalLabel(pc int) string {
	return fmt.Sprintf("%s%06X", localLabelPrefix, pc)
}

// validateLabelName enforces the renaming rules: reject the reserved
// prefixes, require a plain identifier, and reject names already in use.
// A leading '.' marks a local label; it is stripped before validation and
// reattached to the result.
func validateLabelName(name string, alreadyUsed func(string) bool) (string, error) {
	local := strings.HasPrefix(name, ".")
	bare := strings.TrimPrefix(name, ".")

	if strings.HasPrefix(bare, subroutineLabelPrefix) || strings.HasPrefix(bare, localLabelPrefix) {
		return "", newError(ErrReservedLabel, name)
	}
	if !identifierRe.MatchString(bare) {
		return "", newError(ErrInvalidLabel, name)
	}
	if alreadyUsed != nil && alreadyUsed(name) {
		return "", newError(ErrLabelAlreadyUsed, name)
	}

	if local {
		return "." + bare, nil
	}
	return bare, nil
}
