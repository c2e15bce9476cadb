package assembler

import (
	"fmt"
	"regexp"
)

// MaxHeapMiB caps the automatic heap size
const MaxHeapMiB = 32 * 1024

var heapSize = regexp.MustCompile(`^[1-9][0-9]*[kKmMgG]$`)

// HeapOptions controls the heap lines written to the options file
type HeapOptions struct {
	// Auto derives the heap from MemoryMiB: half of it, capped at MaxHeapMiB
	Auto      bool
	MemoryMiB int

	// Override is an explicit size such as "4g" and takes precedence over Auto
	Override string
}

// Size returns the heap size to configure, or "" when none applies
func (h HeapOptions) Size() (string, error) {
	if h.Override != "" {
		if !heapSize.MatchString(h.Override) {
			return "", fmt.Errorf("invalid heap size %q", h.Override)
		}
		return h.Override, nil
	}
	if !h.Auto {
		return "", nil
	}
	if h.MemoryMiB < 2 {
		return "", fmt.Errorf("auto heap needs an instance memory budget, got %d MiB", h.MemoryMiB)
	}

	mib := h.MemoryMiB / 2
	if mib > MaxHeapMiB {
		mib = MaxHeapMiB
	}
	if mib%1024 == 0 {
		return fmt.Sprintf("%dg", mib/1024), nil
	}
	return fmt.Sprintf("%dm", mib), nil
}

// Options returns the -Xms/-Xmx lines, or nil when no heap is configured
func (h HeapOptions) Options() ([]string, error) {
	size, err := h.Size()
	if err != nil || size == "" {
		return nil, err
	}
	return []string{"-Xms" + size, "-Xmx" + size}, nil
}
