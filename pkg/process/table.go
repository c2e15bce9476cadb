package process

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/prometheus/procfs"
)

// Table is a point-in-time view of the OS process table
type Table interface {
	// Lookup finds a live process whose command line contains pattern.
	// The returned state is labelled with name.
	Lookup(name, pattern string) (types.ProcessState, error)

	// Alive reports whether pid exists and is not a zombie
	Alive(pid int) bool
}

// ProcTable reads the process table from a procfs mount
type ProcTable struct {
	fs   procfs.FS
	self int
}

// NewProcTable opens the procfs mounted at mountPoint ("" for /proc)
func NewProcTable(mountPoint string) (*ProcTable, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	procFS, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", mountPoint, err)
	}
	return &ProcTable{fs: procFS, self: os.Getpid()}, nil
}

// Lookup scans every process, like pgrep -f. The calling process and its
// ancestors are never matched: a wrapper such as sh -c or sudo carries the
// same arguments the pattern looks for. When several processes match the
// lowest pid is returned.
func (t *ProcTable) Lookup(name, pattern string) (types.ProcessState, error) {
	state := types.ProcessState{Name: name}
	if pattern == "" {
		return state, fmt.Errorf("empty match pattern for %s", name)
	}

	procs, err := t.fs.AllProcs()
	if err != nil {
		return state, fmt.Errorf("failed to list processes: %w", err)
	}

	skip := t.lineage()
	var pids []int
	for _, p := range procs {
		if skip[p.PID] {
			continue
		}
		cmdline, err := p.CmdLine()
		if err != nil || len(cmdline) == 0 {
			// exited between listing and reading, or a kernel thread
			continue
		}
		if !strings.Contains(strings.Join(cmdline, " "), pattern) {
			continue
		}
		if !t.Alive(p.PID) {
			continue
		}
		pids = append(pids, p.PID)
	}

	if len(pids) == 0 {
		return state, nil
	}
	sort.Ints(pids)
	state.PID = pids[0]
	state.Alive = true
	return state, nil
}

// lineage returns the calling process and its ancestors up to, but not
// including, init
func (t *ProcTable) lineage() map[int]bool {
	pids := map[int]bool{t.self: true}
	for pid := t.self; ; {
		p, err := t.fs.Proc(pid)
		if err != nil {
			return pids
		}
		stat, err := p.Stat()
		if err != nil || stat.PPID <= 1 || pids[stat.PPID] {
			return pids
		}
		pid = stat.PPID
		pids[pid] = true
	}
}

// Alive reports whether pid exists and is not a zombie
func (t *ProcTable) Alive(pid int) bool {
	p, err := t.fs.Proc(pid)
	if err != nil {
		return false
	}
	stat, err := p.Stat()
	if err != nil {
		return false
	}
	return stat.State != "Z" && stat.State != "X"
}
