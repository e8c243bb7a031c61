package stm

import (
	"github.com/kolkov/gostm/internal/stm/stmlog"
	"github.com/kolkov/gostm/internal/stm/txn"
)

// config holds the settings a Runtime is built from. It is unexported;
// callers configure it only through Option values passed to NewRuntime.
type config struct {
	logger *stmlog.Logger
	tuning txn.Tuning
}

func defaultConfig() *config {
	return &config{
		logger: stmlog.New(),
		tuning: txn.DefaultTuning(),
	}
}

// Option configures a Runtime constructed by NewRuntime.
type Option func(*config)

// WithLogging(true) replaces the runtime's default stderr logger with one
// that discards its output, silencing retry-trace diagnostics entirely;
// fatal allocation failures still terminate the process, they simply do so
// without a message. WithLogging(false) keeps the default logger.
func WithLogging(discard bool) Option {
	return func(c *config) {
		if discard {
			c.logger = stmlog.Discard()
		}
	}
}

// WithMaxHistory bounds how many committed versions each Var created from
// this Runtime keeps reachable before older versions are pruned. The
// default is verchain.DefaultMaxHistory (8). A transaction whose read
// version has been pruned past retries automatically, so lowering this
// trades memory for a higher chance of retry under heavy write
// contention on long-running readers.
func WithMaxHistory(n int) Option {
	return func(c *config) { c.tuning.MaxHistory = n }
}

// WithStripeBits sizes the commit-time striped lock table at 2^bits
// entries. The default (stripelock.DefaultTableBits, 20) trades a large,
// one-time 64 MiB allocation for a vanishingly small collision rate;
// tests exercising stripe-collision behavior deliberately pass a small
// value instead.
func WithStripeBits(bits int) Option {
	return func(c *config) { c.tuning.StripeBits = bits }
}

// WithChunkSize sets the byte size of each chunk the slab allocator's
// central source hands out. Must be large enough to hold at least one
// block of the largest small-object size class.
func WithChunkSize(bytes int) Option {
	return func(c *config) { c.tuning.Slab.ChunkSize = bytes }
}

// WithMaxCentralCache bounds how many idle chunks the central allocator
// source keeps before releasing surplus chunks back to the OS.
func WithMaxCentralCache(n int) Option {
	return func(c *config) { c.tuning.Slab.MaxCentralCache = n }
}

// WithMaxThreadCache bounds how many chunks a per-goroutine allocator
// cache holds before spilling overflow to the central source.
func WithMaxThreadCache(n int) Option {
	return func(c *config) { c.tuning.Slab.MaxThreadCache = n }
}

// WithMaxRescueChecks bounds how many full slabs a size-class pool
// inspects for reclaimable remote frees before giving up and fetching a
// new chunk from the thread cache.
func WithMaxRescueChecks(n int) Option {
	return func(c *config) { c.tuning.Slab.MaxRescueChecks = n }
}
