package env

import (
	"strconv"

	"github.com/denisbrodbeck/machineid"
)

const appID = "safeio"

// SerialNumber derives a stable serial number from the machine ID. It
// returns 0 if the machine ID isn't available.
func SerialNumber() uint32 {
	id, err := machineid.ProtectedID(appID)
	if err != nil || len(id) < 8 {
		return 0
	}
	n, err := strconv.ParseUint(id[:8], 16, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
