// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package mocks

import (
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
)

// MockSessions is a mock of auth.Sessions.
type MockSessions struct {
	mock.Mock
}

// NewMockSessions creates a MockSessions whose expectations are asserted
// when the test ends.
func NewMockSessions(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessions {
	m := &MockSessions{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Issue provides a mock function.
func (m *MockSessions) Issue(userID ulid.ULID, remember bool) (auth.SessionToken, error) {
	ret := m.Called(userID, remember)
	tok, _ := ret.Get(0).(auth.SessionToken)
	return tok, ret.Error(1)
}

// Parse provides a mock function.
func (m *MockSessions) Parse(value string) (ulid.ULID, error) {
	ret := m.Called(value)
	id, _ := ret.Get(0).(ulid.ULID)
	return id, ret.Error(1)
}

var _ auth.Sessions = (*MockSessions)(nil)
