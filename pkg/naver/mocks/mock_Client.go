// Package mocks provides test doubles for the naver client.
package mocks

import (
	"context"

	naver "github.com/sells-group/phonematch-cli/pkg/naver"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// SearchLocal provides a mock function with given fields: ctx, query, display
func (_m *MockClient) SearchLocal(ctx context.Context, query string, display int) (*naver.LocalResponse, error) {
	ret := _m.Called(ctx, query, display)

	if len(ret) == 0 {
		panic("no return value specified for SearchLocal")
	}

	var r0 *naver.LocalResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*naver.LocalResponse, error)); ok {
		return rf(ctx, query, display)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*naver.LocalResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
