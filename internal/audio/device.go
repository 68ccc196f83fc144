package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes an available capture device.
type DeviceInfo struct {
	ID        string // stable identifier for --device selection
	Name      string // human-readable device name
	IsDefault bool
}

// String returns a human-readable representation of the device.
func (d DeviceInfo) String() string {
	marker := ""
	if d.IsDefault {
		marker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, marker)
}

// ListDevices enumerates all capture devices.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("capture-%d", i),
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// GetDefaultDevice returns the default capture device, falling back to the
// first device when the platform does not flag one.
func GetDefaultDevice() (*DeviceInfo, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}

	for _, device := range devices {
		if device.IsDefault {
			return &device, nil
		}
	}
	if len(devices) > 0 {
		return &devices[0], nil
	}
	return nil, fmt.Errorf("no capture devices found")
}

// captureDeviceIndex parses the numeric index out of a "capture-N" device ID.
func captureDeviceIndex(id string) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(id, "capture-%d", &idx); err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid device id: %s", id)
	}
	return idx, nil
}

// resolveCaptureDevice maps a "capture-N" ID to the platform device ID using
// an already-open context, so the capturer opens the selected device instead
// of the default one.
func resolveCaptureDevice(ctx *malgo.AllocatedContext, id string) (malgo.DeviceID, error) {
	var zero malgo.DeviceID

	idx, err := captureDeviceIndex(id)
	if err != nil {
		return zero, err
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return zero, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if idx >= len(infos) {
		return zero, fmt.Errorf("device %s not found (%d capture devices)", id, len(infos))
	}
	return infos[idx].ID, nil
}

// FindDeviceByName finds a device by case-insensitive partial name match.
func FindDeviceByName(name string) (*DeviceInfo, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(name)
	for _, device := range devices {
		if strings.Contains(strings.ToLower(device.Name), search) {
			return &device, nil
		}
	}
	return nil, fmt.Errorf("no device found matching name: %s", name)
}
