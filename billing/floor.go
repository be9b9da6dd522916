/*
floor.go - Floor/block code extraction from free-form unit names

PURPOSE:
  Unit names arrive as free text: "A-101", "GF-01", "Block C - 303",
  "1405", "Penthouse". Analytics views group units by floor or block, so
  this file derives a grouping key from whatever the name contains.

POLICY (in matching order):
  1. Hyphenated name whose last segment is all digits: the code is
     everything before that final hyphen ("gma-annex-404" -> "GMA-ANNEX",
     "Block C - 303" -> "BLOCK C").
  2. Purely numeric, three or more digits: the code is all digits except
     the last two ("1405" -> "14", "301" -> "3"). Shorter numbers carry
     no floor information.
  3. No digits at all: the whole name is the block ("Penthouse").
  4. Letter prefix directly followed by a digit: that prefix
     ("A101" -> "A", "GMA202" -> "GMA").
  Anything else is ungroupable.

  The function is total and deterministic: whitespace is normalized,
  output is always upper-cased, and failure is a false second return,
  never a panic. Grouping keys feed display only - billing never looks
  at them.
*/
package billing

import "strings"

// ParseFloor derives the floor/block grouping key from a unit name.
// The second return is false when no key can be derived.
func ParseFloor(unitName string) (string, bool) {
	name := strings.Join(strings.Fields(unitName), " ")
	if name == "" {
		return "", false
	}

	// Hyphenated form: split at the last hyphen; a trailing digit group is
	// the unit number and everything before it is the floor/block code.
	if i := strings.LastIndexByte(name, '-'); i >= 0 {
		head := strings.TrimSpace(name[:i])
		tail := strings.TrimSpace(name[i+1:])
		if tail != "" && allDigits(tail) {
			if head == "" {
				return "", false
			}
			return strings.ToUpper(head), true
		}
	}

	// Purely numeric: the last two digits are the unit number, the rest is
	// the floor. Fewer than three digits leaves nothing to derive.
	if allDigits(name) {
		if len(name) >= 3 {
			return name[:len(name)-2], true
		}
		return "", false
	}

	// No digits anywhere: the whole name is the block.
	if !strings.ContainsAny(name, "0123456789") {
		return strings.ToUpper(name), true
	}

	// Letter prefix immediately followed by a digit.
	i := 0
	for i < len(name) && isAsciiLetter(name[i]) {
		i++
	}
	if i > 0 && i < len(name) && isAsciiDigit(name[i]) {
		return strings.ToUpper(name[:i]), true
	}

	return "", false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isAsciiDigit(s[i]) {
			return false
		}
	}
	return true
}

func isAsciiDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAsciiLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
