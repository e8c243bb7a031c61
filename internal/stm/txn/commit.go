package txn

import "sort"

// commit runs the full commit protocol for the accumulated write-set.
// Read-only transactions (empty write-set) take the fast path: no locks,
// no validation.
func (tx *Tx) commit() bool {
	desc := tx.desc
	if len(desc.WriteSet) == 0 {
		desc.CommitAllocations()
		return true
	}

	tx.lockWriteSet()

	wv := tx.rt.Clock.Tick()

	if !tx.validateReadSet() {
		tx.unlockWriteSet()
		return false
	}

	for i := range desc.WriteSet {
		desc.WriteSet[i].Commit(wv)
		desc.WriteSet[i].Free = nil
	}

	tx.unlockWriteSet()
	desc.CommitAllocations()
	return true
}

// lockWriteSet acquires, in ascending stripe-index order, the lock for
// every distinct stripe a write-set entry's address hashes onto. Sorting
// and deduplicating first is what prevents two committing transactions
// from deadlocking against each other.
func (tx *Tx) lockWriteSet() {
	desc := tx.desc
	desc.LockSet = desc.LockSet[:0]

	indices := make([]uint32, len(desc.WriteSet))
	for i, w := range desc.WriteSet {
		indices[i] = tx.rt.Stripes.StripeOf(w.Addr)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	indices = dedupSorted(indices)

	for _, idx := range indices {
		tx.rt.Stripes.LockByIndex(idx)
		desc.LockSet = append(desc.LockSet, idx)
	}
}

// unlockWriteSet releases every stripe this transaction holds, in reverse
// acquisition order.
func (tx *Tx) unlockWriteSet() {
	ls := tx.desc.LockSet
	for i := len(ls) - 1; i >= 0; i-- {
		tx.rt.Stripes.UnlockByIndex(ls[i])
	}
	tx.desc.LockSet = tx.desc.LockSet[:0]
}

// validateReadSet re-checks every entry accumulated by load calls this
// attempt made. For each: a pre-lock check rejects a variable someone else
// is mid-commit on, the entry's own validator rejects a head that moved
// since the read, and a post-lock check catches a writer that took the
// stripe after the pre-check but had not yet published its new head when
// the validator ran. Go's atomic loads are already sequentially consistent,
// so the fence the protocol this was distilled from inserts between the
// validator call and the post-check has nothing further to add here; the
// two checks bracketing it are kept regardless; see spec §4.4.6 step 4.
func (tx *Tx) validateReadSet() bool {
	rv := tx.desc.ReadVersion
	for _, entry := range tx.desc.ReadSet {
		idx := tx.rt.Stripes.StripeOf(entry.Addr)

		if tx.rt.Stripes.IsLockedIndex(idx) && !tx.holds(idx) {
			return false
		}
		if !entry.Validate(rv) {
			return false
		}
		if tx.rt.Stripes.IsLockedIndex(idx) && !tx.holds(idx) {
			return false
		}
	}
	return true
}

// holds reports whether this attempt's lock-set contains idx. lock-set is
// kept sorted by lockWriteSet, so this is a binary search.
func (tx *Tx) holds(idx uint32) bool {
	ls := tx.desc.LockSet
	i := sort.Search(len(ls), func(i int) bool { return ls[i] >= idx })
	return i < len(ls) && ls[i] == idx
}

func dedupSorted(s []uint32) []uint32 {
	if len(s) == 0 {
		return s
	}
	j := 0
	for i := 1; i < len(s); i++ {
		if s[i] != s[j] {
			j++
			s[j] = s[i]
		}
	}
	return s[:j+1]
}
