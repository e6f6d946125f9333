// Package mocks provides test doubles for the brave client.
package mocks

import (
	"context"

	brave "github.com/barscout/barscout-cli/pkg/brave"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, query, count
func (_m *MockClient) Search(ctx context.Context, query string, count int) (*brave.SearchResponse, error) {
	ret := _m.Called(ctx, query, count)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *brave.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*brave.SearchResponse, error)); ok {
		return rf(ctx, query, count)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) *brave.SearchResponse); ok {
		r0 = rf(ctx, query, count)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*brave.SearchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, query, count)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
