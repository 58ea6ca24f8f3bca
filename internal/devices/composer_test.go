package devices

import (
	"errors"
	"testing"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func intPtr(v int) *int {
	return &v
}

func testComposer(t *testing.T) (*Composer, *observer.ObservedLogs) {
	t.Helper()
	catalog, err := types.NewCatalog(
		types.ModuleLayout{Name: "A", TotalSize: 4},
		types.ModuleLayout{Name: "B", TotalSize: 10},
	)
	if err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zapcore.DebugLevel)
	return NewComposer(catalog, zap.New(core)), logs
}

func TestComposer_RunningOffsets(t *testing.T) {
	c, _ := testComposer(t)

	device, err := c.ComposeDevice(deviceEntry{
		DeviceID:   "d1",
		BaseOffset: 100,
		Modules: []moduleEntry{
			{ModuleType: "A", Tag: "a1"},
			{ModuleType: "B", Tag: "b1"},
			{ModuleType: "A", Tag: "a2", Offset: intPtr(200)},
			{ModuleType: "A", Tag: "a3"},
		},
	}, 0)
	if err != nil {
		t.Fatalf("ComposeDevice: %v", err)
	}

	want := []int{100, 104, 200, 204}
	for i, m := range device.Modules {
		if m.Offset != want[i] {
			t.Errorf("%s offset = %d, want %d", m.Tag, m.Offset, want[i])
		}
	}
	if device.DeviceName != "d1" {
		t.Errorf("device name should default to id, got %q", device.DeviceName)
	}
}

func TestComposer_Errors(t *testing.T) {
	c, _ := testComposer(t)

	_, err := c.ComposeDevice(deviceEntry{
		DeviceID: "d1",
		Modules:  []moduleEntry{{ModuleType: "Missing", Tag: "m"}},
	}, 0)
	if !errors.Is(err, types.ErrModuleNotFound) {
		t.Errorf("expected ErrModuleNotFound, got %v", err)
	}

	_, err = c.ComposeDevice(deviceEntry{
		DeviceID: "d1",
		Modules: []moduleEntry{
			{ModuleType: "A", Tag: "dup"},
			{ModuleType: "B", Tag: "dup"},
		},
	}, 0)
	if err == nil {
		t.Error("expected duplicate tag error")
	}
}

func TestComposer_WarnsPastBlockEnd(t *testing.T) {
	c, logs := testComposer(t)

	_, err := c.ComposeDevice(deviceEntry{
		DeviceID: "d1",
		Modules:  []moduleEntry{{ModuleType: "B", Tag: "b", Offset: intPtr(10)}},
	}, 16)
	if err != nil {
		t.Fatalf("ComposeDevice: %v", err)
	}
	if logs.FilterMessage("Module extends past block end").Len() != 1 {
		t.Error("expected a warning for a module past the block end")
	}
}

func TestNormalizeStatus(t *testing.T) {
	entries, err := normalizeStatus([]statusDeviceEntry{
		{DeviceID: "m1", DeviceName: "Meter 1", DeviceType: "meter", Tag: "meter", Offset: intPtr(0), Description: "Meter"},
		{DeviceID: "kiln", DeviceName: "Kiln", DeviceType: "roller_kiln", Modules: []statusModuleEntry{
			{Tag: "z1", Offset: 4, Description: "Zone 1"},
			{Tag: "z2", Offset: 8, Description: "Zone 2"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []types.StatusEntry{
		{DeviceID: "m1", DeviceName: "Meter 1", DeviceType: "meter", Tag: "meter", Description: "Meter", Offset: 0},
		{DeviceID: "kiln_z1", DeviceName: "Kiln - Zone 1", DeviceType: "roller_kiln", Tag: "z1", Description: "Zone 1", Offset: 4},
		{DeviceID: "kiln_z2", DeviceName: "Kiln - Zone 2", DeviceType: "roller_kiln", Tag: "z2", Description: "Zone 2", Offset: 8},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}

	if _, err := normalizeStatus([]statusDeviceEntry{{DeviceID: "bad"}}); err == nil {
		t.Error("expected error for entry without offset or modules")
	}
}
