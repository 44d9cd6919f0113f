// Package provider adapts search backends to match.Collaborator.
package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/pkg/naver"
)

// Naver answers searches from the Naver Local Search API. The listing itself
// carries the phone, so direct extraction needs no request; the detail view is
// emulated by searching again for the listing's own name and road address.
type Naver struct {
	client  naver.Client
	display int
}

// NewNaver wraps a Naver client. display is the result count per search.
func NewNaver(client naver.Client, display int) *Naver {
	return &Naver{client: client, display: display}
}

// Search returns the listings for query in relevance order.
func (n *Naver) Search(ctx context.Context, query string) ([]model.Candidate, error) {
	resp, err := n.client.SearchLocal(ctx, query, n.display)
	if err != nil {
		return nil, eris.Wrap(err, "provider: naver search")
	}
	cands := make([]model.Candidate, 0, len(resp.Items))
	for _, it := range resp.Items {
		cands = append(cands, naverCandidate(it))
	}
	return cands, nil
}

func naverCandidate(it naver.Item) model.Candidate {
	handle := it.Link
	if handle == "" {
		handle = it.Name() + "|" + it.Address
	}
	return model.Candidate{
		Handle:         handle,
		Name:           it.Name(),
		AddressSnippet: it.RoadAddress,
		LotAddress:     it.Address,
		Phone:          strings.TrimSpace(it.Telephone),
	}
}

// ExtractDirect reads the phone printed on the listing.
func (n *Naver) ExtractDirect(_ context.Context, c model.Candidate) (model.ExtractionResult, error) {
	return model.Found(c.Phone, c.BestAddress()), nil
}

// ExtractDetail looks the listing up again by name and road address and reads
// the phone of the entry with the same lot address.
func (n *Naver) ExtractDetail(ctx context.Context, c model.Candidate) (model.ExtractionResult, error) {
	if c.Phone != "" {
		return model.Found(c.Phone, c.BestAddress()), nil
	}
	query := strings.TrimSpace(c.Name + " " + c.AddressSnippet)
	resp, err := n.client.SearchLocal(ctx, query, naver.MaxDisplay)
	if err != nil {
		return model.ExtractionResult{}, eris.Wrap(err, "provider: naver detail")
	}
	for _, it := range resp.Items {
		if it.Name() != c.Name {
			continue
		}
		if c.LotAddress != "" && it.Address != c.LotAddress {
			continue
		}
		addr := it.Address
		if addr == "" {
			addr = it.RoadAddress
		}
		return model.Found(it.Telephone, addr), nil
	}
	return model.NotFound(c.BestAddress()), nil
}
