package gamepad

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultSysfsRoot is where the kernel exposes hidraw class devices.
const DefaultSysfsRoot = "/sys/class/hidraw"

// FindHIDRaw returns the /dev path of the first hidraw node whose HID_ID
// matches VendorID and one of ProductIDs.
func FindHIDRaw(sysfsRoot string) (string, error) {
	if sysfsRoot == "" {
		sysfsRoot = DefaultSysfsRoot
	}

	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		vid, pid, ok := readHIDID(filepath.Join(sysfsRoot, name, "device", "uevent"))
		if !ok || vid != VendorID {
			continue
		}
		for _, p := range ProductIDs {
			if pid == p {
				return filepath.Join("/dev", name), nil
			}
		}
	}
	return "", fmt.Errorf("%w: no hidraw node for %04x:%04x", ErrDeviceNotFound, VendorID, ProductIDs)
}

// readHIDID parses "HID_ID=0003:00002563:00000575" from a uevent file.
func readHIDID(path string) (vid, pid uint16, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		v, found := strings.CutPrefix(sc.Text(), "HID_ID=")
		if !found {
			continue
		}
		parts := strings.Split(v, ":")
		if len(parts) != 3 {
			return 0, 0, false
		}
		vv, err1 := strconv.ParseUint(parts[1], 16, 32)
		pp, err2 := strconv.ParseUint(parts[2], 16, 32)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return uint16(vv), uint16(pp), true
	}
	return 0, 0, false
}
