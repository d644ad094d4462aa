package loop

import (
	"sync"

	"github.com/codefionn/concierge/internal/consts"
)

// Config holds the hard budgets of one run.
type Config struct {
	// MaxSteps bounds the number of recorded orchestration steps, the
	// terminal synthesis step included (default: 24)
	MaxSteps int

	// MaxToolCalls bounds the number of dispatched tool calls (default: 12)
	MaxToolCalls int

	// MaxBatchSize bounds how many read-only calls share one iteration (default: 4)
	MaxBatchSize int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxSteps:     consts.DefaultMaxSteps,
		MaxToolCalls: consts.DefaultMaxToolCalls,
		MaxBatchSize: consts.DefaultMaxBatchSize,
	}
}

// WithDefaults returns a copy with non-positive fields replaced by defaults.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.MaxSteps <= 0 {
		c.MaxSteps = def.MaxSteps
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = def.MaxToolCalls
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	return c
}

// Budget tracks step and tool-call usage for one run. The last step slot is
// reserved for the terminal synthesis step, so non-terminal steps stop being
// recorded once only that slot is left.
type Budget struct {
	mu        sync.RWMutex
	cfg       Config
	steps     int
	toolCalls int
}

// NewBudget creates a Budget. A nil config uses defaults.
func NewBudget(config *Config) *Budget {
	if config == nil {
		config = DefaultConfig()
	}
	return &Budget{cfg: config.WithDefaults()}
}

// Config returns the effective budgets.
func (b *Budget) Config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// Steps returns the number of recorded steps.
func (b *Budget) Steps() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.steps
}

// ToolCalls returns the number of dispatched tool calls.
func (b *Budget) ToolCalls() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.toolCalls
}

// TryRecordStep reserves a slot for a non-terminal step. It returns false
// when the step must be dropped.
func (b *Budget) TryRecordStep() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.steps >= b.cfg.MaxSteps-1 {
		return false
	}
	b.steps++
	return true
}

// RecordTerminalStep reserves the slot for the synthesis step.
func (b *Budget) RecordTerminalStep() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.steps >= b.cfg.MaxSteps {
		return false
	}
	b.steps++
	return true
}

// RecordToolCalls counts n dispatched tool calls.
func (b *Budget) RecordToolCalls(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toolCalls += n
}

// RemainingToolCalls returns how many more tool calls may be dispatched.
func (b *Budget) RemainingToolCalls() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return max(0, b.cfg.MaxToolCalls-b.toolCalls)
}

// RemainingSteps returns how many non-terminal steps may still be recorded.
func (b *Budget) RemainingSteps() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return max(0, b.cfg.MaxSteps-1-b.steps)
}

// CanIterate reports whether another loop iteration may start.
func (b *Budget) CanIterate(needMore bool) bool {
	return needMore && b.RemainingSteps() > 0 && b.RemainingToolCalls() > 0
}

// BatchCap returns the largest batch the next iteration may dispatch. One
// step slot is held back for the iteration's evaluation when possible.
func (b *Budget) BatchCap() int {
	steps := b.RemainingSteps()
	calls := b.RemainingToolCalls()
	if steps == 0 || calls == 0 {
		return 0
	}
	return min(b.Config().MaxBatchSize, calls, max(1, steps-1))
}
