package model

// ListEntry is one row of a List response: a snapshot of one
// RunningProcess's identity, status, and cached resource metrics.
type ListEntry struct {
	Name         string
	Status       Status
	CPUPercent   float64
	MemoryBytes  uint64
	DiskReadBytes  uint64
	DiskWriteBytes uint64
	Restarts     uint32
	RuntimeSeconds float64
}
