// Package diff computes grouped edit-script diffs over ordered
// instruction sequences and renders them in unified style.
//
// The matcher follows the classic longest-common-subsequence approach:
// repeatedly find the longest matching block between the unmatched gaps,
// then derive edit opcodes from the block list.
package diff

import "fmt"

// Tag classifies one opcode of an edit script.
type Tag uint8

const (
	TagEqual Tag = iota
	TagReplace
	TagDelete
	TagInsert
)

func (t Tag) String() string {
	switch t {
	case TagEqual:
		return "equal"
	case TagReplace:
		return "replace"
	case TagDelete:
		return "delete"
	case TagInsert:
		return "insert"
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Match is one maximal run of equal elements: a[A:A+Size] == b[B:B+Size].
type Match struct {
	A, B, Size int
}

// OpCode describes how to turn a[I1:I2] into b[J1:J2].
type OpCode struct {
	Tag            Tag
	I1, I2, J1, J2 int
}

// SequenceMatcher compares two string sequences.
type SequenceMatcher struct {
	a, b []string
	b2j  map[string][]int

	matchingBlocks []Match
	opCodes        []OpCode
}

// NewMatcher creates a matcher over a and b. Elements are compared by
// string equality; callers project instructions to strings first.
func NewMatcher(a, b []string) *SequenceMatcher {
	m := &SequenceMatcher{a: a, b: b}
	m.b2j = make(map[string][]int, len(b))
	for j, s := range b {
		m.b2j[s] = append(m.b2j[s], j)
	}
	return m
}

// findLongestMatch returns the longest matching block within
// a[alo:ahi] and b[blo:bhi]. Of all maximal blocks it prefers the one
// starting earliest in a, then earliest in b.
func (m *SequenceMatcher) findLongestMatch(alo, ahi, blo, bhi int) Match {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}

	for i := alo; i < ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}

	// Extend the best block as far as possible in both directions.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi &&
		m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}

	return Match{A: besti, B: bestj, Size: bestsize}
}

// GetMatchingBlocks returns the list of matching blocks, terminated by a
// sentinel of size zero at (len(a), len(b)).
func (m *SequenceMatcher) GetMatchingBlocks() []Match {
	if m.matchingBlocks != nil {
		return m.matchingBlocks
	}

	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	var blocks []Match
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		match := m.findLongestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if match.Size == 0 {
			continue
		}
		blocks = append(blocks, match)
		if s.alo < match.A && s.blo < match.B {
			queue = append(queue, span{s.alo, match.A, s.blo, match.B})
		}
		if match.A+match.Size < s.ahi && match.B+match.Size < s.bhi {
			queue = append(queue, span{match.A + match.Size, s.ahi, match.B + match.Size, s.bhi})
		}
	}

	// Sort by position and merge adjacent blocks.
	sortMatches(blocks)
	merged := make([]Match, 0, len(blocks)+1)
	for _, blk := range blocks {
		if n := len(merged); n > 0 &&
			merged[n-1].A+merged[n-1].Size == blk.A &&
			merged[n-1].B+merged[n-1].Size == blk.B {
			merged[n-1].Size += blk.Size
			continue
		}
		merged = append(merged, blk)
	}
	merged = append(merged, Match{A: len(m.a), B: len(m.b), Size: 0})

	m.matchingBlocks = merged
	return merged
}

func sortMatches(blocks []Match) {
	// Insertion sort; block lists are short and nearly ordered.
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0; j-- {
			prev, cur := blocks[j-1], blocks[j]
			if prev.A < cur.A || (prev.A == cur.A && prev.B <= cur.B) {
				break
			}
			blocks[j-1], blocks[j] = cur, prev
		}
	}
}

// GetOpCodes returns the edit script turning a into b.
func (m *SequenceMatcher) GetOpCodes() []OpCode {
	if m.opCodes != nil {
		return m.opCodes
	}

	var codes []OpCode
	i, j := 0, 0
	for _, blk := range m.GetMatchingBlocks() {
		var tag Tag
		set := false
		switch {
		case i < blk.A && j < blk.B:
			tag, set = TagReplace, true
		case i < blk.A:
			tag, set = TagDelete, true
		case j < blk.B:
			tag, set = TagInsert, true
		}
		if set {
			codes = append(codes, OpCode{Tag: tag, I1: i, I2: blk.A, J1: j, J2: blk.B})
		}
		i, j = blk.A+blk.Size, blk.B+blk.Size
		if blk.Size > 0 {
			codes = append(codes, OpCode{Tag: TagEqual, I1: blk.A, I2: i, J1: blk.B, J2: j})
		}
	}

	m.opCodes = codes
	return codes
}

// GetGroupedOpCodes groups the edit script into hunks with up to n
// context elements on each side, unified-diff style. Identical sequences
// produce no groups.
func (m *SequenceMatcher) GetGroupedOpCodes(n int) [][]OpCode {
	if n < 0 {
		n = 0
	}
	codes := m.GetOpCodes()
	if len(codes) == 0 {
		codes = []OpCode{{Tag: TagEqual}}
	}

	// Clip oversized leading and trailing context.
	if codes[0].Tag == TagEqual {
		c := codes[0]
		c.I1 = max(c.I1, c.I2-n)
		c.J1 = max(c.J1, c.J2-n)
		codes[0] = c
	}
	if last := len(codes) - 1; codes[last].Tag == TagEqual {
		c := codes[last]
		c.I2 = min(c.I2, c.I1+n)
		c.J2 = min(c.J2, c.J1+n)
		codes[last] = c
	}

	nn := n + n
	var groups [][]OpCode
	var group []OpCode
	for _, c := range codes {
		// Split an equal run that is wide enough to end one hunk and
		// start another.
		if c.Tag == TagEqual && c.I2-c.I1 > nn {
			group = append(group, OpCode{
				Tag: TagEqual,
				I1:  c.I1, I2: min(c.I2, c.I1+n),
				J1: c.J1, J2: min(c.J2, c.J1+n),
			})
			groups = append(groups, group)
			group = nil
			c.I1 = max(c.I1, c.I2-n)
			c.J1 = max(c.J1, c.J2-n)
		}
		group = append(group, c)
	}
	if len(group) > 0 && !(len(group) == 1 && group[0].Tag == TagEqual) {
		groups = append(groups, group)
	}
	return groups
}
