package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/pkg/google"
)

// Google answers searches from Google Places. Text search returns the phone
// when Places has one; the detail view is a place details request.
type Google struct {
	client google.Client
}

// NewGoogle wraps a Places client.
func NewGoogle(client google.Client) *Google {
	return &Google{client: client}
}

// Search returns the places for query in relevance order.
func (g *Google) Search(ctx context.Context, query string) ([]model.Candidate, error) {
	resp, err := g.client.TextSearch(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "provider: google search")
	}
	cands := make([]model.Candidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		cands = append(cands, model.Candidate{
			Handle:         p.ID,
			Name:           p.DisplayName.Text,
			AddressSnippet: trimCountry(p.FormattedAddress),
			Phone:          strings.TrimSpace(p.NationalPhoneNumber),
		})
	}
	return cands, nil
}

// ExtractDirect reads the phone returned with the search result.
func (g *Google) ExtractDirect(_ context.Context, c model.Candidate) (model.ExtractionResult, error) {
	return model.Found(c.Phone, c.AddressSnippet), nil
}

// ExtractDetail fetches the place's details.
func (g *Google) ExtractDetail(ctx context.Context, c model.Candidate) (model.ExtractionResult, error) {
	p, err := g.client.GetPlace(ctx, c.Handle)
	if err != nil {
		return model.ExtractionResult{}, eris.Wrap(err, "provider: google detail")
	}
	addr := trimCountry(p.FormattedAddress)
	if addr == "" {
		addr = c.AddressSnippet
	}
	return model.Found(p.NationalPhoneNumber, addr), nil
}

// trimCountry drops the leading country name Places puts on Korean addresses.
func trimCountry(addr string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(addr), "대한민국"))
}
