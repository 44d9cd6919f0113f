package provider

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// Fixture is the on-disk shape of an offline provider file.
type Fixture struct {
	// Queries maps a search query to its results in relevance order.
	Queries map[string][]model.Candidate `json:"queries"`
	// Details maps a candidate handle to what its detail view shows.
	Details map[string]model.ExtractionResult `json:"details"`
}

// Offline answers searches from a fixture file. It keeps no network session
// and is used for dry runs and tests.
type Offline struct {
	fx Fixture

	mu     sync.Mutex
	resets int
}

// LoadOffline reads a fixture file.
func LoadOffline(path string) (*Offline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: read fixture %s", path)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, eris.Wrapf(err, "provider: parse fixture %s", path)
	}
	return NewOffline(fx), nil
}

// NewOffline creates an offline provider from an in-memory fixture.
func NewOffline(fx Fixture) *Offline {
	return &Offline{fx: fx}
}

// Search returns the fixture's results for query; unknown queries have none.
func (o *Offline) Search(_ context.Context, query string) ([]model.Candidate, error) {
	return o.fx.Queries[query], nil
}

// ExtractDirect reads the phone on the candidate itself.
func (o *Offline) ExtractDirect(_ context.Context, c model.Candidate) (model.ExtractionResult, error) {
	return model.Found(c.Phone, c.BestAddress()), nil
}

// ExtractDetail returns the fixture's detail entry for the candidate.
func (o *Offline) ExtractDetail(_ context.Context, c model.Candidate) (model.ExtractionResult, error) {
	d, ok := o.fx.Details[c.Handle]
	if !ok {
		return model.NotFound(c.BestAddress()), nil
	}
	if d.CollectedAddress == "" {
		d.CollectedAddress = c.BestAddress()
	}
	return model.Found(d.Phone, d.CollectedAddress), nil
}

// Reset counts returns to the neutral state.
func (o *Offline) Reset(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
	return nil
}

// Resets returns how many times Reset was called.
func (o *Offline) Resets() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resets
}
