package hardware

import (
	"math/rand"
	"sync"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/clock"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/sirupsen/logrus"
)

// simulatedDHT22Frame is the fixed frame the simulator decodes for every read.
var simulatedDHT22Frame = [5]byte{0x40, 0x20, 0x20, 0x10, 0x90}

// Simulator is the Driver used when no peripherals are available.
type Simulator struct {
	pumpState
	clock clock.Clock
	log   *logrus.Entry

	mu        sync.Mutex
	rng       *rand.Rand
	indicator entities.Indicator
}

func NewSimulator(seed int64, clk clock.Clock, log *logrus.Entry) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.WithField("seed", seed).Info("hardware running in simulation mode")
	return &Simulator{
		clock:     clk,
		log:       log,
		rng:       rand.New(rand.NewSource(seed)),
		indicator: entities.IndicatorOff,
	}
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Simulator) ReadTemperatureHumidity() (float64, float64, error) {
	return DecodeDHT22(simulatedDHT22Frame)
}

// ReadSoilMoisture returns a value in 30.0..69.9.
func (s *Simulator) ReadSoilMoisture() (float64, error) {
	return 30.0 + float64(s.intn(400))/10, nil
}

// ReadLight returns a value in 50.0..549.9.
func (s *Simulator) ReadLight() (float64, error) {
	return 50.0 + float64(s.intn(5000))/10, nil
}

func (s *Simulator) ReadWaterLevel() (entities.WaterLevel, error) {
	return entities.WaterLevel{
		Top:    s.intn(2) == 1,
		Middle: s.intn(2) == 1,
		Bottom: s.intn(2) == 1,
	}, nil
}

func (s *Simulator) ControlPump(pump int, duration time.Duration) error {
	if err := validPump(pump); err != nil {
		return err
	}
	s.start(pump, s.clock.Now())
	defer s.stop(pump)

	s.log.Infof("[SIM] pump %d running for %.1f seconds", pump, duration.Seconds())
	s.clock.Sleep(duration)
	s.log.Infof("[SIM] pump %d stopped", pump)
	return nil
}

func (s *Simulator) SetStatus(indicator entities.Indicator) error {
	s.mu.Lock()
	s.indicator = indicator
	s.mu.Unlock()
	s.log.Debugf("[SIM] status indicator: %s", indicator)
	return nil
}

// Indicator returns the last indicator state set.
func (s *Simulator) Indicator() entities.Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator
}

func (s *Simulator) ReadAll() entities.SensorReading {
	return readAll(s, s.clock, s.log)
}

func (s *Simulator) Simulated() bool { return true }

func (s *Simulator) Close() error {
	s.log.Info("[SIM] hardware released")
	return nil
}
