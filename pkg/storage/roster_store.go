// Package storage persists plant state between controller runs.
package storage

import (
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// RosterStore keeps the plant roster, including LastWatered, in a YAML file.
type RosterStore struct {
	path       string
	filesystem filesystemManagement
}

func NewRosterStore(path string) *RosterStore {
	return &RosterStore{path: path, filesystem: new(fileManagement)}
}

// Load returns the saved plants. A missing file yields no plants and no error.
func (s *RosterStore) Load() ([]entities.Plant, error) {
	if !s.filesystem.exists(s.path) {
		return nil, nil
	}
	plants, err := utils.ConfigurationParser(s.path, []entities.Plant{})
	if err != nil {
		return nil, errors.Wrapf(err, "read plant state %s", s.path)
	}
	return plants, nil
}

func (s *RosterStore) Save(plants []entities.Plant) error {
	data, err := yaml.Marshal(plants)
	if err != nil {
		return errors.Wrap(err, "encode plant state")
	}
	if err := s.filesystem.writeFile(s.path, data); err != nil {
		return errors.Wrapf(err, "write plant state %s", s.path)
	}
	return nil
}
