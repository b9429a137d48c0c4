package stacks

import (
	"regexp"
	"strings"
)

// traitImplRe finds `(impl-trait 'SP...contract.trait-name)` clauses —
// the subset of Clarity contract analysis needed to resolve
// ContractDeployment{implements_trait} predicates (spec.md §4.6), without
// pulling in the full Clarity analyzer (out of scope per spec.md §1).
var traitImplRe = regexp.MustCompile(`\(impl-trait\s+'?([A-Za-z0-9.\-]+)\)`)

// AnalyzeTraits scans a contract's source for impl-trait clauses and
// returns the fully-qualified traits it claims to implement.
func AnalyzeTraits(source string) []string {
	matches := traitImplRe.FindAllStringSubmatch(source, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
