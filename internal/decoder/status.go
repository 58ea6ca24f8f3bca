package decoder

import (
	"fmt"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

// StatusRecordSize is the width of one module status record:
// byte 0 bit 0 error flag, byte 1 reserved, bytes 2-3 status code.
const StatusRecordSize = 4

// UnreadableStatusCode is reported when a record lies outside the buffer.
const UnreadableStatusCode uint16 = 0xFFFF

type ModuleStatus struct {
	Error      bool   `json:"error"`
	StatusCode uint16 `json:"status_code"`
	StatusHex  string `json:"status_hex"`
}

func (s ModuleStatus) IsNormal() bool {
	return !s.Error && s.StatusCode == 0
}

// DecodeStatus reads the status record at offset. A record that does not fit
// in buf decodes to the unreadable sentinel {true, 0xFFFF, "FFFF"}.
func DecodeStatus(buf []byte, offset int) ModuleStatus {
	if offset < 0 || offset+StatusRecordSize > len(buf) {
		return ModuleStatus{
			Error:      true,
			StatusCode: UnreadableStatusCode,
			StatusHex:  "FFFF",
		}
	}

	code := uint16(buf[offset+2])<<8 | uint16(buf[offset+3])
	return ModuleStatus{
		Error:      buf[offset]&0x01 != 0,
		StatusCode: code,
		StatusHex:  fmt.Sprintf("%04X", code),
	}
}

type StatusResult struct {
	DeviceID    string    `json:"device_id"`
	DeviceName  string    `json:"device_name"`
	DeviceType  string    `json:"device_type"`
	ModuleTag   string    `json:"module_tag"`
	Description string    `json:"description"`
	Offset      int       `json:"offset"`
	Error       bool      `json:"error"`
	StatusCode  uint16    `json:"status_code"`
	StatusHex   string    `json:"status_hex"`
	IsNormal    bool      `json:"is_normal"`
	Timestamp   time.Time `json:"timestamp"`
}

// DecodeStatusCollection decodes one record per entry, in entry order.
func (d *Decoder) DecodeStatusCollection(buf []byte, entries []types.StatusEntry) []StatusResult {
	now := d.now()
	results := make([]StatusResult, 0, len(entries))

	for _, entry := range entries {
		status := DecodeStatus(buf, entry.Offset)
		results = append(results, StatusResult{
			DeviceID:    entry.DeviceID,
			DeviceName:  entry.DeviceName,
			DeviceType:  entry.DeviceType,
			ModuleTag:   entry.Tag,
			Description: entry.Description,
			Offset:      entry.Offset,
			Error:       status.Error,
			StatusCode:  status.StatusCode,
			StatusHex:   status.StatusHex,
			IsNormal:    status.IsNormal(),
			Timestamp:   now,
		})
	}

	return results
}
