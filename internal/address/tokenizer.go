// Package address tokenizes Korean administrative addresses and scores how
// closely a search result's address matches an original address.
package address

import "strings"

// Neighborhood suffixes: 동 (dong) and 리 (ri).
const (
	suffixDong = "동"
	suffixRi   = "리"
)

// detailStart is the first token index treated as a detail token
// (building, floor, unit) by the plain scorer.
const detailStart = 4

// Tokens is the tokenized form of one address.
type Tokens struct {
	Parts           []string
	Neighborhood    string
	HasNeighborhood bool
	Lot             string
	HasLot          bool
}

// Tokenize splits addr on whitespace and locates the neighborhood and
// lot-number tokens. Blank input yields empty Tokens.
func Tokenize(addr string) Tokens {
	parts := strings.Fields(addr)
	if len(parts) == 0 {
		return Tokens{}
	}

	t := Tokens{Parts: parts}
	for _, p := range parts {
		if IsNeighborhood(p) {
			t.Neighborhood = p
			t.HasNeighborhood = true
			break
		}
	}
	for _, p := range parts {
		if IsLotNumber(p) {
			t.Lot = p
			t.HasLot = true
			break
		}
	}
	return t
}

// Neighborhood returns the first neighborhood token of addr, if any.
func Neighborhood(addr string) (string, bool) {
	t := Tokenize(addr)
	return t.Neighborhood, t.HasNeighborhood
}

// IsNeighborhood reports whether tok ends in a neighborhood suffix. A bare
// suffix is not a neighborhood.
func IsNeighborhood(tok string) bool {
	if tok == suffixDong || tok == suffixRi {
		return false
	}
	return strings.HasSuffix(tok, suffixDong) || strings.HasSuffix(tok, suffixRi)
}

// NeighborhoodBase strips one trailing neighborhood suffix from tok.
// "고현동" becomes "고현".
func NeighborhoodBase(tok string) string {
	if strings.HasSuffix(tok, suffixDong) {
		return strings.TrimSuffix(tok, suffixDong)
	}
	return strings.TrimSuffix(tok, suffixRi)
}

// IsLotNumber reports whether tok looks like "1701-3": it contains a hyphen
// and every hyphen-separated part is a non-empty run of ASCII digits.
func IsLotNumber(tok string) bool {
	if !strings.Contains(tok, "-") {
		return false
	}
	for _, part := range strings.Split(tok, "-") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}
	return true
}

// Empty reports whether the address had no tokens.
func (t Tokens) Empty() bool {
	return len(t.Parts) == 0
}

// City returns the first token (province or metropolitan city).
func (t Tokens) City() (string, bool) {
	return t.at(0)
}

// District returns the second token (city, county, or district).
func (t Tokens) District() (string, bool) {
	return t.at(1)
}

// Details returns the tokens from index 4 on.
func (t Tokens) Details() []string {
	if len(t.Parts) <= detailStart {
		return nil
	}
	return t.Parts[detailStart:]
}

func (t Tokens) at(i int) (string, bool) {
	if i < len(t.Parts) {
		return t.Parts[i], true
	}
	return "", false
}
