package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsVoltageReader reads raw ADC counts from a Linux IIO device and
// converts them to volts. devicePath is the iio device directory, e.g.
// /sys/bus/iio/devices/iio:device0; the channel selects in_voltageN_raw.
func SysfsVoltageReader(devicePath string, voltsPerBit float64) VoltageReader {
	return func(_ context.Context, channel int) (float64, error) {
		path := filepath.Join(devicePath, fmt.Sprintf("in_voltage%d_raw", channel))
		counts, err := readSysfsFloat(path)
		if err != nil {
			return 0, err
		}
		return counts * voltsPerBit, nil
	}
}

// SysfsUnitReader reads a calibrated value from a Linux IIO attribute
// file, e.g. in_pressure_input of a barometric sensor.
func SysfsUnitReader(path string) UnitReader {
	return func(_ context.Context) (float64, error) {
		return readSysfsFloat(path)
	}
}

func readSysfsFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return value, nil
}
