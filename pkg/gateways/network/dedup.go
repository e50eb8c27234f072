package network

import (
	"strconv"
	"sync"

	bloomFilter "github.com/bits-and-blooms/bloom/v3"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/utils"
	"github.com/pkg/errors"
)

const (
	DUPLICATION_FILTER            = "1"
	FILTER_CAPACITY               = "100000"
	DUPLICATION_PROBABILITY       = "0.0001"
	RESET_FILTER_USAGE_PERCENTAGE = "75"
)

// duplicationFilter remembers the correlation ids of commands already executed,
// so a redelivered command is not executed twice.
type duplicationFilter struct {
	duplicationMutex             sync.Mutex
	filter                       *bloomFilter.BloomFilter
	maximumPercentageFilterUsage float32
	filterCapacity               uint
	isMessageDuplicatedFunction  func(string) bool
}

// newDuplicationFilter is tuned through the DUPLICATION_FILTER, FILTER_CAPACITY,
// DUPLICATION_PROBABILITY and RESET_FILTER_USAGE_PERCENTAGE environment variables.
func newDuplicationFilter() (*duplicationFilter, error) {
	maximumPercentageFilterUsage, err := strconv.ParseFloat(utils.GetValueFromEnvironmentVariable("RESET_FILTER_USAGE_PERCENTAGE", RESET_FILTER_USAGE_PERCENTAGE), 32)
	if err != nil {
		return nil, errors.Wrap(err, "RESET_FILTER_USAGE_PERCENTAGE")
	}
	filterCapacity, capacityErr := strconv.ParseUint(utils.GetValueFromEnvironmentVariable("FILTER_CAPACITY", FILTER_CAPACITY), 10, 0)
	duplicationProbability, probabilityErr := strconv.ParseFloat(utils.GetValueFromEnvironmentVariable("DUPLICATION_PROBABILITY", DUPLICATION_PROBABILITY), 64)
	if capacityErr != nil || probabilityErr != nil {
		return nil, errors.New("FILTER_CAPACITY and DUPLICATION_PROBABILITY environment variables with invalid values")
	}

	d := &duplicationFilter{
		maximumPercentageFilterUsage: float32(maximumPercentageFilterUsage),
		filterCapacity:               uint(filterCapacity),
	}
	d.filter = bloomFilter.NewWithEstimates(d.filterCapacity, duplicationProbability)
	d.isMessageDuplicatedFunction = d.isMessageDuplicated
	if utils.GetValueFromEnvironmentVariable("DUPLICATION_FILTER", DUPLICATION_FILTER) == "0" {
		d.isMessageDuplicatedFunction = func(string) bool { return false }
	}
	return d, nil
}

// seen reports whether id was already recorded and records it otherwise.
// Messages without a correlation id are never considered duplicated.
func (d *duplicationFilter) seen(id string) bool {
	if id == "" {
		return false
	}
	d.duplicationMutex.Lock()
	defer d.duplicationMutex.Unlock()
	if d.isMessageDuplicatedFunction(id) {
		return true
	}
	d.updateDuplicationFilter(id)
	return false
}

func (d *duplicationFilter) isMessageDuplicated(id string) bool {
	return d.filter.TestString(id)
}

func (d *duplicationFilter) updateDuplicationFilter(id string) {
	d.resetDuplicationFilter()
	d.filter.AddString(id)
}

func (d *duplicationFilter) resetDuplicationFilter() {
	approximatedFilterSize := d.filter.ApproximatedSize()
	currentPercentageFilterUsage := (float32(approximatedFilterSize) / float32(d.filterCapacity)) * 100
	if currentPercentageFilterUsage >= d.maximumPercentageFilterUsage {
		d.filter.ClearAll()
	}
}
