package engine

import (
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
)

var (
	ErrRosterFull       = errors.New("plant roster is full")
	ErrPositionTaken    = errors.New("position already taken")
	ErrPositionOutRange = errors.New("position out of range")
)

// Roster holds at most entities.MaxPlants plants with unique positions, in insertion order.
type Roster struct {
	plants []entities.Plant
}

func NewRoster(plants []entities.Plant) (*Roster, error) {
	roster := &Roster{plants: make([]entities.Plant, 0, entities.MaxPlants)}
	for _, plant := range plants {
		if err := roster.Add(plant); err != nil {
			return nil, errors.Wrapf(err, "plant %q", plant.Name)
		}
	}
	return roster, nil
}

func (r *Roster) Add(plant entities.Plant) error {
	if len(r.plants) >= entities.MaxPlants {
		return ErrRosterFull
	}
	if plant.Position < 0 || plant.Position > entities.MaxPosition {
		return errors.Wrapf(ErrPositionOutRange, "position %d", plant.Position)
	}
	if _, taken := r.ByPosition(plant.Position); taken {
		return errors.Wrapf(ErrPositionTaken, "position %d", plant.Position)
	}
	r.plants = append(r.plants, plant)
	return nil
}

func (r *Roster) Len() int { return len(r.plants) }

// Plants returns a copy of the roster.
func (r *Roster) Plants() []entities.Plant {
	return append([]entities.Plant(nil), r.plants...)
}

func (r *Roster) ByPosition(position int) (entities.Plant, bool) {
	for _, plant := range r.plants {
		if plant.Position == position {
			return plant, true
		}
	}
	return entities.Plant{}, false
}

// MarkWatered sets LastWatered of the plant at position.
func (r *Roster) MarkWatered(position int, at time.Time) bool {
	for i := range r.plants {
		if r.plants[i].Position == position {
			r.plants[i].LastWatered = at
			return true
		}
	}
	return false
}

func (r *Roster) ActiveCount() int {
	count := 0
	for _, plant := range r.plants {
		if plant.Active {
			count++
		}
	}
	return count
}
