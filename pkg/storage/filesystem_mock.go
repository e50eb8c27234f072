package storage

import "github.com/stretchr/testify/mock"

type fileManagementMock struct {
	mock.Mock
}

func (fm *fileManagementMock) writeFile(path string, data []byte) error {
	args := fm.Called(path, data)
	return args.Error(0)
}

func (fm *fileManagementMock) exists(path string) bool {
	args := fm.Called(path)
	return args.Bool(0)
}
