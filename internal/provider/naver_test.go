package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phonematch-cli/internal/match"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/pkg/naver"
	"github.com/sells-group/phonematch-cli/pkg/naver/mocks"
)

var (
	_ match.Collaborator = (*Naver)(nil)
	_ match.Collaborator = (*Google)(nil)
	_ match.Collaborator = (*Offline)(nil)
	_ match.Collaborator = (*Cached)(nil)
	_ match.Resetter     = (*Offline)(nil)
)

func TestNaver_Search(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchLocal", mock.Anything, "아주식당 아주동", 5).Return(&naver.LocalResponse{
		Items: []naver.Item{
			{
				Title:       "<b>아주식당</b>",
				Link:        "https://example.com/a",
				Telephone:   " 055-123-4567 ",
				Address:     "경상남도 거제시 아주동 1234",
				RoadAddress: "경상남도 거제시 아주로 10",
			},
			{Title: "아주&amp;식당", Address: "경상남도 거제시 옥포동 1"},
		},
	}, nil)

	n := NewNaver(client, 5)
	cands, err := n.Search(context.Background(), "아주식당 아주동")
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, "https://example.com/a", cands[0].Handle)
	assert.Equal(t, "아주식당", cands[0].Name)
	assert.Equal(t, "경상남도 거제시 아주로 10", cands[0].AddressSnippet)
	assert.Equal(t, "경상남도 거제시 아주동 1234", cands[0].LotAddress)
	assert.Equal(t, "055-123-4567", cands[0].Phone)

	assert.Equal(t, "아주&식당|경상남도 거제시 옥포동 1", cands[1].Handle)
	assert.Empty(t, cands[1].Phone)
}

func TestNaver_SearchError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchLocal", mock.Anything, "q", 5).Return(nil, errors.New("boom"))

	_, err := NewNaver(client, 5).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "naver search")
}

func TestNaver_ExtractDirect(t *testing.T) {
	n := NewNaver(mocks.NewMockClient(t), 5)

	res, err := n.ExtractDirect(context.Background(), model.Candidate{Phone: "02-1", LotAddress: "서울 중구 명동 1"})
	require.NoError(t, err)
	assert.True(t, res.HasPhone)
	assert.Equal(t, "서울 중구 명동 1", res.CollectedAddress)

	res, err = n.ExtractDirect(context.Background(), model.Candidate{AddressSnippet: "서울 중구 명동길 1"})
	require.NoError(t, err)
	assert.False(t, res.HasPhone)
	assert.Equal(t, "서울 중구 명동길 1", res.CollectedAddress)
}

func TestNaver_ExtractDetail(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchLocal", mock.Anything, "아주식당 경남 거제시 아주로 10", naver.MaxDisplay).Return(&naver.LocalResponse{
		Items: []naver.Item{
			{Title: "아주식당", Address: "경남 거제시 옥포동 5", Telephone: "055-000-0000"},
			{Title: "<b>아주식당</b>", Address: "경남 거제시 아주동 1234", Telephone: "055-123-4567"},
		},
	}, nil)

	n := NewNaver(client, 5)
	res, err := n.ExtractDetail(context.Background(), model.Candidate{
		Name:           "아주식당",
		AddressSnippet: "경남 거제시 아주로 10",
		LotAddress:     "경남 거제시 아주동 1234",
	})
	require.NoError(t, err)
	assert.True(t, res.HasPhone)
	assert.Equal(t, "055-123-4567", res.Phone)
	assert.Equal(t, "경남 거제시 아주동 1234", res.CollectedAddress)
}

func TestNaver_ExtractDetailNoMatch(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("SearchLocal", mock.Anything, "아주식당 경남 거제시 아주로 10", naver.MaxDisplay).
		Return(&naver.LocalResponse{}, nil)

	res, err := NewNaver(client, 5).ExtractDetail(context.Background(), model.Candidate{
		Name:           "아주식당",
		AddressSnippet: "경남 거제시 아주로 10",
	})
	require.NoError(t, err)
	assert.False(t, res.HasPhone)
	assert.Equal(t, "경남 거제시 아주로 10", res.CollectedAddress)
}
