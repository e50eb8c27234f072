package hardware

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/clock"
	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	dht22StartLow  = 18 * time.Millisecond
	dht22StartHigh = 30 * time.Microsecond
	dht22BitWait   = 50 * time.Microsecond
	dht22BitHold   = 70 * time.Microsecond
	dht22Bits      = 40

	adcFrequency = physic.MegaHertz

	tslPowerOn     = 0x03
	tslChannel0    = 0x0C
	tslChannel1    = 0x0E
	tslIntegration = 100 * time.Millisecond

	pumpSettleDelay = 100 * time.Millisecond
)

// Pinout names every line and bus the controller uses.
type Pinout struct {
	DHT22        string
	SoilMoisture string
	WaterTop     string
	WaterMiddle  string
	WaterBottom  string
	Pump1        string
	Pump2        string
	PumpEnable   string
	StatusLED    string
	WarningLED   string
	SPIPort      string
	ADCChannel   int
	I2CBus       string
	LightAddress uint16
}

// DefaultPinout is the Raspberry Pi wiring of the planter board.
func DefaultPinout() Pinout {
	return Pinout{
		DHT22:        "GPIO4",
		SoilMoisture: "GPIO18",
		WaterTop:     "GPIO5",
		WaterMiddle:  "GPIO6",
		WaterBottom:  "GPIO7",
		Pump1:        "GPIO23",
		Pump2:        "GPIO24",
		PumpEnable:   "GPIO25",
		StatusLED:    "GPIO12",
		WarningLED:   "GPIO13",
		SPIPort:      "/dev/spidev0.0",
		ADCChannel:   0,
		I2CBus:       "1",
		LightAddress: 0x29,
	}
}

// registry resolves lines and buses. Tests swap it for periph.io test doubles.
type registry struct {
	init    func() error
	pin     func(name string) gpio.PinIO
	openSPI func(name string) (spi.PortCloser, error)
	openI2C func(name string) (i2c.BusCloser, error)
}

func hostRegistry() registry {
	return registry{
		init: func() error {
			_, err := host.Init()
			return err
		},
		pin:     gpioreg.ByName,
		openSPI: spireg.Open,
		openI2C: i2creg.Open,
	}
}

// Peripheral is the Driver backed by real GPIO, SPI and I2C peripherals.
// Operations hold a read lock for their whole duration; Close waits for them
// and every operation after Close returns ErrReleased.
type Peripheral struct {
	pumpState
	releaseMu sync.RWMutex
	released  bool
	pins      Pinout
	reg       registry
	clock     clock.Clock
	log       *logrus.Entry

	dht22      gpio.PinIO
	soil       gpio.PinIO
	water      [3]gpio.PinIO
	pump1      gpio.PinIO
	pump2      gpio.PinIO
	enable     gpio.PinIO
	statusLED  gpio.PinIO
	warningLED gpio.PinIO
	bus        i2c.BusCloser
}

func NewPeripheral(pins Pinout, clk clock.Clock, log *logrus.Entry) (*Peripheral, error) {
	return newPeripheral(pins, hostRegistry(), clk, log)
}

func newPeripheral(pins Pinout, reg registry, clk clock.Clock, log *logrus.Entry) (*Peripheral, error) {
	if err := reg.init(); err != nil {
		return nil, errors.Wrap(err, "initialize periph host")
	}
	p := &Peripheral{pins: pins, reg: reg, clock: clk, log: log}
	if err := p.claim(); err != nil {
		if closeErr := p.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("release after failed claim")
		}
		return nil, err
	}
	log.Info("hardware initialized")
	return p, nil
}

func (p *Peripheral) claim() error {
	var err error
	if p.dht22, err = p.claimInput(p.pins.DHT22, gpio.PullUp); err != nil {
		return err
	}
	if p.soil, err = p.claimInput(p.pins.SoilMoisture, gpio.Float); err != nil {
		return err
	}
	for i, name := range []string{p.pins.WaterTop, p.pins.WaterMiddle, p.pins.WaterBottom} {
		if p.water[i], err = p.claimInput(name, gpio.Float); err != nil {
			return err
		}
	}
	if p.pump1, err = p.claimOutput(p.pins.Pump1); err != nil {
		return err
	}
	if p.pump2, err = p.claimOutput(p.pins.Pump2); err != nil {
		return err
	}
	if p.enable, err = p.claimOutput(p.pins.PumpEnable); err != nil {
		return err
	}
	if p.statusLED, err = p.claimOutput(p.pins.StatusLED); err != nil {
		return err
	}
	if p.warningLED, err = p.claimOutput(p.pins.WarningLED); err != nil {
		return err
	}
	if p.bus, err = p.reg.openI2C(p.pins.I2CBus); err != nil {
		p.bus = nil
		return errors.Wrapf(err, "open i2c bus %s", p.pins.I2CBus)
	}
	return nil
}

func (p *Peripheral) lookup(name string) (gpio.PinIO, error) {
	pin := p.reg.pin(name)
	if pin == nil {
		return nil, errors.Wrap(ErrUnknownLine, name)
	}
	return pin, nil
}

func (p *Peripheral) claimInput(name string, pull gpio.Pull) (gpio.PinIO, error) {
	pin, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, errors.Wrapf(err, "request input %s", name)
	}
	return pin, nil
}

func (p *Peripheral) claimOutput(name string) (gpio.PinIO, error) {
	pin, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "request output %s", name)
	}
	return pin, nil
}

// acquire takes the read lock unless the driver is released. Callers release it.
func (p *Peripheral) acquire() error {
	p.releaseMu.RLock()
	if p.released {
		p.releaseMu.RUnlock()
		return ErrReleased
	}
	return nil
}

func (p *Peripheral) ReadTemperatureHumidity() (float64, float64, error) {
	if err := p.acquire(); err != nil {
		return 0, 0, err
	}
	defer p.releaseMu.RUnlock()
	if err := p.dht22.Out(gpio.Low); err != nil {
		return 0, 0, errors.Wrap(err, "dht22 start pulse")
	}
	p.clock.Sleep(dht22StartLow)
	if err := p.dht22.Out(gpio.High); err != nil {
		return 0, 0, errors.Wrap(err, "dht22 start pulse")
	}
	p.clock.Sleep(dht22StartHigh)
	if err := p.dht22.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return 0, 0, errors.Wrap(err, "dht22 release line")
	}

	var data [5]byte
	for i := 0; i < dht22Bits; i++ {
		p.clock.Sleep(dht22BitWait)
		bit := p.dht22.Read()
		p.clock.Sleep(dht22BitHold)
		if bit == gpio.High {
			data[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return DecodeDHT22(data)
}

// ReadSoilMoisture samples the MCP3008. The SPI port is only held for the call.
func (p *Peripheral) ReadSoilMoisture() (float64, error) {
	if err := p.acquire(); err != nil {
		return 0, err
	}
	defer p.releaseMu.RUnlock()
	port, err := p.reg.openSPI(p.pins.SPIPort)
	if err != nil {
		return 0, errors.Wrapf(err, "open spi port %s", p.pins.SPIPort)
	}
	defer func() {
		if err := port.Close(); err != nil {
			p.log.WithError(err).Debug("close spi port")
		}
	}()

	conn, err := port.Connect(adcFrequency, spi.Mode0, 8)
	if err != nil {
		return 0, errors.Wrap(err, "configure spi port")
	}
	rx := make([]byte, 3)
	if err := conn.Tx(mcp3008Frame(p.pins.ADCChannel), rx); err != nil {
		return 0, errors.Wrap(err, "mcp3008 transfer")
	}
	return MoisturePercentage(mcp3008Value(rx)), nil
}

func (p *Peripheral) ReadLight() (float64, error) {
	if err := p.acquire(); err != nil {
		return 0, err
	}
	defer p.releaseMu.RUnlock()
	dev := &i2c.Dev{Bus: p.bus, Addr: p.pins.LightAddress}
	if _, err := dev.Write([]byte{tslPowerOn}); err != nil {
		return 0, errors.Wrap(err, "tsl2561 power on")
	}
	p.clock.Sleep(tslIntegration)

	ch0, err := readLightChannel(dev, tslChannel0)
	if err != nil {
		return 0, err
	}
	ch1, err := readLightChannel(dev, tslChannel1)
	if err != nil {
		return 0, err
	}
	return Lux(ch0, ch1), nil
}

func readLightChannel(dev *i2c.Dev, command byte) (uint16, error) {
	buffer := make([]byte, 2)
	if err := dev.Tx([]byte{command}, buffer); err != nil {
		return 0, errors.Wrapf(err, "tsl2561 read register 0x%02x", command)
	}
	return binary.LittleEndian.Uint16(buffer), nil
}

func (p *Peripheral) ReadWaterLevel() (entities.WaterLevel, error) {
	if err := p.acquire(); err != nil {
		return entities.WaterLevel{}, err
	}
	defer p.releaseMu.RUnlock()
	return entities.WaterLevel{
		Top:    p.water[0].Read() == gpio.High,
		Middle: p.water[1].Read() == gpio.High,
		Bottom: p.water[2].Read() == gpio.High,
	}, nil
}

// ControlPump runs one pump for duration behind the shared enable gate. It blocks for the whole run.
func (p *Peripheral) ControlPump(pump int, duration time.Duration) error {
	if err := validPump(pump); err != nil {
		return err
	}
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.releaseMu.RUnlock()
	line := p.pump1
	if pump == entities.Pump2 {
		line = p.pump2
	}

	p.start(pump, p.clock.Now())
	defer p.stop(pump)

	if err := p.enable.Out(gpio.High); err != nil {
		return errors.Wrap(err, "enable pump gate")
	}
	p.clock.Sleep(pumpSettleDelay)
	if err := line.Out(gpio.High); err != nil {
		_ = p.enable.Out(gpio.Low)
		return errors.Wrapf(err, "start pump %d", pump)
	}
	p.log.Infof("pump %d started for %.1f seconds", pump, duration.Seconds())

	p.clock.Sleep(duration)

	pumpErr := line.Out(gpio.Low)
	gateErr := p.enable.Out(gpio.Low)
	if pumpErr != nil {
		return errors.Wrapf(pumpErr, "stop pump %d", pump)
	}
	if gateErr != nil {
		return errors.Wrap(gateErr, "disable pump gate")
	}
	p.log.Infof("pump %d stopped", pump)
	return nil
}

func (p *Peripheral) SetStatus(indicator entities.Indicator) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.releaseMu.RUnlock()
	status, warning := gpio.Low, gpio.Low
	switch indicator {
	case entities.IndicatorNormal:
		status = gpio.High
	case entities.IndicatorWarning:
		warning = gpio.High
	}
	if err := p.statusLED.Out(status); err != nil {
		return errors.Wrap(err, "set status led")
	}
	if err := p.warningLED.Out(warning); err != nil {
		return errors.Wrap(err, "set warning led")
	}
	return nil
}

func (p *Peripheral) ReadAll() entities.SensorReading {
	return readAll(p, p.clock, p.log)
}

func (p *Peripheral) Simulated() bool { return false }

// Close waits for running operations, drives outputs low and releases every
// claimed line and the I2C bus. Resources are released individually, so it is
// safe on a partially claimed driver.
func (p *Peripheral) Close() error {
	p.releaseMu.Lock()
	defer p.releaseMu.Unlock()
	if p.released {
		return nil
	}
	p.released = true

	var result error
	keep := func(err error) {
		if err != nil && result == nil {
			result = err
		}
	}
	for _, out := range []*gpio.PinIO{&p.pump1, &p.pump2, &p.enable, &p.statusLED, &p.warningLED} {
		if *out == nil {
			continue
		}
		keep((*out).Out(gpio.Low))
		keep((*out).Halt())
		*out = nil
	}
	inputs := []*gpio.PinIO{&p.dht22, &p.soil, &p.water[0], &p.water[1], &p.water[2]}
	for _, in := range inputs {
		if *in == nil {
			continue
		}
		keep((*in).Halt())
		*in = nil
	}
	if p.bus != nil {
		keep(p.bus.Close())
		p.bus = nil
	}
	return errors.Wrap(result, "release hardware")
}
