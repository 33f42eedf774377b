// Package storemocks provides a testify-based mock of store.Store,
// following the shape of the teacher's store/mocks/store_mock.go.
package storemocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/inkboard/boardserver/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(id string) (models.Session, error) {
	args := m.Called(id)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *MockStore) Put(session models.Session) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockStore) Keys() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
