package kv

// indexState is the in-memory key->offset map. Insertion order is
// preserved across overwrites (a key keeps its original position; only
// its offset changes) and dropped on removal, matching list_keys'
// expected ordering.
type indexState struct {
	order   []string
	offsets map[string]int64
}

func newIndexState() *indexState {
	return &indexState{offsets: make(map[string]int64)}
}

func (ix *indexState) get(key string) (int64, bool) {
	off, ok := ix.offsets[key]
	return off, ok
}

// set records key at offset, returning whether the key already existed.
func (ix *indexState) set(key string, offset int64) (existed bool) {
	_, existed = ix.offsets[key]
	if !existed {
		ix.order = append(ix.order, key)
	}
	ix.offsets[key] = offset
	return existed
}

// remove drops a key. Returns whether it was present.
func (ix *indexState) remove(key string) bool {
	if _, ok := ix.offsets[key]; !ok {
		return false
	}
	delete(ix.offsets, key)
	for i, k := range ix.order {
		if k == key {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
	return true
}

func (ix *indexState) keys() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

func (ix *indexState) len() int { return len(ix.order) }
