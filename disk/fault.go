package disk

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrInjected is the cause of every failure produced by a FaultDisk.
var ErrInjected = errors.New("injected disk fault")

var _ Disk = (*FaultDisk)(nil)

// FaultDisk wraps a Disk to simulate failures and power loss.
//
// Writes are held in a volatile buffer until Barrier, which is what Crash
// throws away. Faults persist until Heal or Crash: once the write budget set
// by FailWritesAfter is spent, every later write fails, as a dead device
// would.
type FaultDisk struct {
	mu *sync.Mutex
	d  Disk

	pending map[uint64]Block

	writes   uint64
	barriers uint64

	writeBudget   int64 // -1: unlimited
	barrierBudget int64 // -1: unlimited
	failReads     map[uint64]bool
}

// NewFaultDisk returns a FaultDisk over d with no faults armed.
func NewFaultDisk(d Disk) *FaultDisk {
	return &FaultDisk{
		mu:            new(sync.Mutex),
		d:             d,
		pending:       make(map[uint64]Block),
		writeBudget:   -1,
		barrierBudget: -1,
		failReads:     make(map[uint64]bool),
	}
}

// FailWritesAfter lets n more writes succeed and fails all following ones.
func (f *FaultDisk) FailWritesAfter(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeBudget = int64(n)
}

// FailBarriersAfter lets n more barriers succeed and fails all following
// ones. A failed barrier leaves its writes volatile.
func (f *FaultDisk) FailBarriersAfter(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barrierBudget = int64(n)
}

// FailReadsAt makes reads of the given addresses fail.
func (f *FaultDisk) FailReadsAt(addrs ...uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range addrs {
		f.failReads[a] = true
	}
}

// Heal disarms every fault. Volatile writes are kept.
func (f *FaultDisk) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heal()
}

func (f *FaultDisk) heal() {
	f.writeBudget = -1
	f.barrierBudget = -1
	f.failReads = make(map[uint64]bool)
}

// Crash simulates power loss: writes not yet covered by a successful Barrier
// are lost and all faults are disarmed, leaving the disk ready to be
// reopened.
func (f *FaultDisk) Crash() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = make(map[uint64]Block)
	f.heal()
}

// Writes reports the number of writes accepted so far.
func (f *FaultDisk) Writes() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Barriers reports the number of barriers that succeeded so far.
func (f *FaultDisk) Barriers() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.barriers
}

// Volatile reports how many blocks are written but not yet durable.
func (f *FaultDisk) Volatile() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *FaultDisk) ReadTo(a uint64, b Block) error {
	if uint64(len(b)) != BlockSize {
		return ioError("read", a, ErrBlockSize)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads[a] {
		return ioError("read", a, ErrInjected)
	}
	if blk, ok := f.pending[a]; ok {
		copy(b, blk)
		return nil
	}
	return f.d.ReadTo(a, b)
}

func (f *FaultDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	if err := f.ReadTo(a, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (f *FaultDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return ioError("write", a, ErrBlockSize)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	size, err := f.d.Size()
	if err != nil {
		return err
	}
	if a >= size {
		return ioError("write", a, ErrOutOfBounds)
	}
	if f.writeBudget == 0 {
		return ioError("write", a, ErrInjected)
	}
	if f.writeBudget > 0 {
		f.writeBudget--
	}
	blk := make(Block, BlockSize)
	copy(blk, v)
	f.pending[a] = blk
	f.writes++
	return nil
}

func (f *FaultDisk) Size() (uint64, error) {
	return f.d.Size()
}

// Barrier moves volatile writes to the underlying disk in address order and
// then issues its barrier.
func (f *FaultDisk) Barrier() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.barrierBudget == 0 {
		return ioError("barrier", 0, ErrInjected)
	}
	if f.barrierBudget > 0 {
		f.barrierBudget--
	}
	addrs := make([]uint64, 0, len(f.pending))
	for a := range f.pending {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, a := range addrs {
		if err := f.d.Write(a, f.pending[a]); err != nil {
			return err
		}
		delete(f.pending, a)
	}
	if err := f.d.Barrier(); err != nil {
		return err
	}
	f.barriers++
	return nil
}

func (f *FaultDisk) Close() error {
	return f.d.Close()
}
