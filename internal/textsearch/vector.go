package textsearch

import "sort"

// Weight is a tsvector position label. A ranks highest.
type Weight uint8

const (
	WeightD Weight = iota
	WeightC
	WeightB
	WeightA
)

// Default ts_rank weights for D, C, B, A.
var rankWeights = [4]float64{0.1, 0.2, 0.4, 1.0}

const (
	maxPositions = 256
	maxPosition  = 16383
)

// Position is one occurrence of a lexeme.
type Position struct {
	Pos    int
	Weight Weight
}

// Vector maps each lexeme to its ordered positions, like a tsvector.
type Vector map[string][]Position

// Field is a piece of text with the weight its lexemes receive.
type Field struct {
	Text   string
	Weight Weight
}

// BuildVector is setweight(to_tsvector('simple', f1), w1) || ... for the
// given fields. Positions continue across fields in order. The result
// depends only on the inputs.
func BuildVector(fields ...Field) Vector {
	v := make(Vector)
	offset := 0
	for _, f := range fields {
		last := 0
		for i, w := range words(f.Text) {
			pos := offset + i + 1
			if pos > maxPosition {
				pos = maxPosition
			}
			if len(v[w]) < maxPositions {
				v[w] = append(v[w], Position{Pos: pos, Weight: f.Weight})
			}
			last = pos
		}
		if last > offset {
			offset = last
		}
	}
	for _, ps := range v {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Pos < ps[j].Pos })
	}
	return v
}

// Lexemes returns the vector's lexemes in sorted order.
func (v Vector) Lexemes() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Query is a parsed plainto_tsquery: every lexeme must be present.
type Query []string

// ParseQuery is plainto_tsquery('simple', text). Duplicate lexemes collapse.
func ParseQuery(text string) Query {
	seen := make(map[string]struct{})
	var q Query
	for _, w := range words(text) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		q = append(q, w)
	}
	return q
}

// Matches reports whether v @@ q.
func (v Vector) Matches(q Query) bool {
	if len(q) == 0 {
		return false
	}
	for _, lex := range q {
		if _, ok := v[lex]; !ok {
			return false
		}
	}
	return true
}

const piSquaredOverSix = 1.64493406685

// Rank approximates ts_rank(v, q) with default weights and no length
// normalization, clamped to [0, 1]. Rows that do not match the whole query
// rank 0. Each lexeme contributes its heaviest occurrence in full plus a
// harmonic tail of the rest, and contributions are averaged over the query.
func Rank(v Vector, q Query) float64 {
	if !v.Matches(q) {
		return 0
	}

	var res float64
	for _, lex := range q {
		ps := v[lex]
		var sum, maxW float64
		maxIdx := 0
		for j, p := range ps {
			w := rankWeights[p.Weight]
			d := float64(j + 1)
			sum += w / (d * d)
			if w > maxW {
				maxW, maxIdx = w, j
			}
		}
		d := float64(maxIdx + 1)
		res += (maxW + sum - maxW/(d*d)) / piSquaredOverSix
	}
	res /= float64(len(q))

	switch {
	case res < 0:
		return 0
	case res > 1:
		return 1
	default:
		return res
	}
}
