// Package config centralizes the handful of board/scheduler tunables spec.md
// leaves as defaults, instead of scattering them as magic numbers through
// internal/timer, internal/sched and internal/mmu. Grounded on mazboot's
// pattern of a const block per concern (mazboot/golang/main/heap.go's
// PAGE_SIZE/KERNEL_HEAP_SIZE/HEAP_ALIGNMENT, mmu.go's PAGE_TABLE_BASE) rather
// than a parsed config file — nothing in this repo has a filesystem to read
// one from.
package config

const (
	// TimerIntervalMicros is the periodic system-timer compare interval,
	// spec.md §4.4's default of 200000 µs (200 ms per tick).
	TimerIntervalMicros = 200_000

	// TaskStackSize is the size in bytes of a Task's stack, spec.md §3.
	TaskStackSize = 4096

	// StackAlignment is the required alignment of a Task's stack, spec.md §3.
	StackAlignment = 16

	// MaxCores is the number of cores this kernel schedules across,
	// spec.md §1 "up to four cores".
	MaxCores = 4

	// DefaultPriority is the static base counter replenished on wake,
	// spec.md §4.6 "Aging & fairness" (priority default 1).
	DefaultPriority = 1

	// BootstrapTaskPID is the synthetic pid given to the task that
	// captures the kernel's own thread of control on the first tick,
	// spec.md §3 "value 1 is reserved for the bootstrap task".
	BootstrapTaskPID = 1

	// FirstUserPID is where monotonic pid assignment starts, spec.md §3.
	FirstUserPID = 2
)
