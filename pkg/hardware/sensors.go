package hardware

import (
	"math"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/pkg/errors"
)

const (
	adcMaxValue = 1023

	tankFull   = 100.0
	tankMiddle = 66.7
	tankLow    = 33.3
)

// DecodeDHT22 converts the 40 bit DHT22 frame into degrees Celsius and relative humidity.
func DecodeDHT22(data [5]byte) (temperature, humidity float64, err error) {
	if data[0]+data[1]+data[2]+data[3] != data[4] {
		return 0, 0, errors.Wrapf(ErrChecksum, "frame % x", data)
	}
	humidity = float64(uint16(data[0])<<8|uint16(data[1])) / 10
	temperature = float64(uint16(data[2]&0x7F)<<8|uint16(data[3])) / 10
	if data[2]&0x80 != 0 {
		temperature = -temperature
	}
	return temperature, humidity, nil
}

// mcp3008Frame is the single ended read request for the given channel.
func mcp3008Frame(channel int) []byte {
	return []byte{0x01, byte((0x08 | channel) << 4), 0x00}
}

func mcp3008Value(rx []byte) int {
	return int(rx[1]&0x03)<<8 | int(rx[2])
}

// MoisturePercentage scales a 10 bit ADC sample to 0..100.
func MoisturePercentage(raw int) float64 {
	return float64(raw) / adcMaxValue * 100
}

// Lux applies the TSL2561 piecewise approximation to the broadband and infrared channels.
func Lux(ch0, ch1 uint16) float64 {
	if ch0 == 0 {
		return 0
	}
	broadband, infrared := float64(ch0), float64(ch1)
	ratio := infrared / broadband

	switch {
	case ratio <= 0.50:
		return 0.0304*broadband - 0.062*broadband*math.Pow(ratio, 1.4)
	case ratio <= 0.61:
		return 0.0224*broadband - 0.031*infrared
	case ratio <= 0.80:
		return 0.0128*broadband - 0.0153*infrared
	case ratio <= 1.30:
		return 0.00146*broadband - 0.00112*infrared
	default:
		return 0
	}
}

// TankPercentage maps the highest wet contact to a fill level.
func TankPercentage(level entities.WaterLevel) float64 {
	switch {
	case level.Top:
		return tankFull
	case level.Middle:
		return tankMiddle
	case level.Bottom:
		return tankLow
	default:
		return 0
	}
}
