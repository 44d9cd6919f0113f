package match

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// --- Collaborator Mock ---

type mockCollaborator struct {
	mock.Mock
}

func (m *mockCollaborator) Search(ctx context.Context, query string) ([]model.Candidate, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Candidate), args.Error(1)
}

func (m *mockCollaborator) ExtractDirect(ctx context.Context, c model.Candidate) (model.ExtractionResult, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.ExtractionResult), args.Error(1)
}

func (m *mockCollaborator) ExtractDetail(ctx context.Context, c model.Candidate) (model.ExtractionResult, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.ExtractionResult), args.Error(1)
}

// --- Resetting Collaborator Mock ---

type mockSessionCollaborator struct {
	mockCollaborator
	resets int
}

func (m *mockSessionCollaborator) Reset(_ context.Context) error {
	m.resets++
	return nil
}
