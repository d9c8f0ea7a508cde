// Package id generates identifiers for records this service owns.
// BookStack entities keep their instance-assigned integer ids; only sync runs
// get ids from here.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PrefixRun marks sync run ids, e.g. "run-V1StGXR8_Z5jdHi6B-myT".
const PrefixRun = "run"

// nanoidLength is the default NanoID size.
const nanoidLength = 21

// Generate creates a prefixed unique ID using NanoID.
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewRunID returns a fresh sync run id.
func NewRunID() (string, error) {
	return Generate(PrefixRun)
}

// HasPrefix reports whether s looks like an id generated with prefix.
// It checks shape only; it says nothing about whether the record exists.
func HasPrefix(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"-")
	if !ok || len(rest) != nanoidLength {
		return false
	}
	for _, c := range rest {
		if !isURLSafe(c) {
			return false
		}
	}
	return true
}

func isURLSafe(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-'
}
