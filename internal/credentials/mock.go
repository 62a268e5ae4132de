package credentials

import "github.com/stretchr/testify/mock"

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ReadPassword() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockStore) WritePassword(password string) error {
	args := m.Called(password)
	return args.Error(0)
}

func (m *MockStore) Ping() error {
	args := m.Called()
	return args.Error(0)
}
