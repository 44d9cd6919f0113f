// Package model defines the records, candidates, and outcome rows shared by the
// phone enrichment pipeline.
package model

import "strings"

// Record is one business row loaded from the input table. Index is 1-based and
// assigned once at load time.
type Record struct {
	Index           int    `json:"index"`
	BusinessName    string `json:"business_name"`
	OriginalAddress string `json:"original_address"`
	OriginalPhone   string `json:"original_phone"`
}

// HasAddress reports whether the record carries a non-blank address.
func (r Record) HasAddress() bool {
	return strings.TrimSpace(r.OriginalAddress) != ""
}

// Candidate is one search result returned by a collaborator for a query.
// Handle is opaque to the core; only the collaborator that produced the
// candidate interprets it.
type Candidate struct {
	Handle         string `json:"handle"`
	Name           string `json:"name,omitempty"`
	AddressSnippet string `json:"address_snippet"`
	LotAddress     string `json:"lot_address,omitempty"` // old-style lot (jibun) address when the listing shows one
	Phone          string `json:"phone,omitempty"`       // phone printed on the listing itself, if any
}

// HasLotAddress reports whether the candidate carries a lot-style address.
func (c Candidate) HasLotAddress() bool {
	return strings.TrimSpace(c.LotAddress) != ""
}

// BestAddress returns the most specific address the candidate carries.
func (c Candidate) BestAddress() string {
	if c.HasLotAddress() {
		return c.LotAddress
	}
	return c.AddressSnippet
}

// ExtractionResult is what a collaborator returns after reading a candidate's
// listing or detail view.
type ExtractionResult struct {
	Phone            string `json:"phone,omitempty"`
	HasPhone         bool   `json:"has_phone"`
	CollectedAddress string `json:"collected_address,omitempty"`
}

// Found builds an ExtractionResult carrying a phone number. A blank phone
// yields a not-found result.
func Found(phone, collectedAddress string) ExtractionResult {
	phone = strings.TrimSpace(phone)
	return ExtractionResult{
		Phone:            phone,
		HasPhone:         phone != "",
		CollectedAddress: strings.TrimSpace(collectedAddress),
	}
}

// NotFound builds an ExtractionResult without a phone number.
func NotFound(collectedAddress string) ExtractionResult {
	return ExtractionResult{CollectedAddress: strings.TrimSpace(collectedAddress)}
}
