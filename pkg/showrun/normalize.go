package showrun

import (
	"strings"
)

// Kind identifies the stanza category for the multi-entity splitter, which
// needs it to reconstruct a synthetic header for each split-off partition.
type Kind string

// Stanza kinds subject to exit-splitting.
const (
	KindIPv4Object Kind = "ipv4"
	KindIPv4Group  Kind = "ipv4-group"
	KindIPv6Group  Kind = "ipv6-group"
	KindIPv6Object Kind = "ipv6"
	KindFQDNObject Kind = "fqdn"
	KindRule       Kind = "rule"
)

var kindHeaders = map[Kind]string{
	KindIPv4Object: "address-object ipv4",
	KindIPv4Group:  "address-group ipv4",
	KindIPv6Group:  "address-group ipv6",
	KindIPv6Object: "address-object ipv6",
	KindFQDNObject: "address-object fqdn",
}

// SplitMultiEntity handles SonicWall's habit of collapsing several
// definitions into one stanza separated by "exit" lines. The child list is
// split at each exit boundary: the first partition stays attached to the
// original stanza, and each later partition becomes a synthetic stanza whose
// header is rebuilt from the partition's leading "name <ident>" line; a rule
// partition instead reuses the original header with a " (Sub Rule)" suffix. The
// returned slice holds only the new synthetic stanzas; callers append them to
// their working set. Stanzas without an exit line pass through untouched.
func SplitMultiEntity(stanzas []*Stanza, kind Kind) []*Stanza {
	var synthetic []*Stanza

	for _, s := range stanzas {
		var exits []int
		for i, ln := range s.Children {
			if strings.Contains(ln.Text, "exit") {
				exits = append(exits, i+1)
			}
		}
		if len(exits) == 0 {
			continue
		}

		parts := partition(s.Children, exits)
		if len(parts) < 2 {
			continue
		}

		for _, part := range parts[1:] {
			if len(part) == 0 {
				continue
			}
			synthetic = append(synthetic, &Stanza{
				Text:     syntheticHeader(s, part, kind),
				Children: part,
			})
		}
		s.Children = parts[0]
	}
	return synthetic
}

// partition slices children at the given boundary indexes, dropping any empty
// tail after a trailing exit.
func partition(children []*Line, boundaries []int) [][]*Line {
	var parts [][]*Line
	prev := 0
	for _, b := range boundaries {
		parts = append(parts, children[prev:b])
		prev = b
	}
	if prev < len(children) {
		parts = append(parts, children[prev:])
	}
	return parts
}

func syntheticHeader(orig *Stanza, part []*Line, kind Kind) string {
	if kind == KindRule {
		return orig.Text + " (Sub Rule)"
	}
	ident := strings.TrimSpace(part[0].Text)
	ident = strings.TrimSpace(strings.TrimPrefix(ident, "name"))
	return kindHeaders[kind] + " " + ident
}
