package store

import "sync"

// Read paths build keys in pooled buffers. Badger write transactions hold on
// to the key slices they are given until commit, so Save and Delete allocate
// their keys and never take them from here.

// journalKeyCap fits the longest journal key, a source index entry:
// "run:idx:source:" + book id + ":" + sortable timestamp + ":" + run id.
const journalKeyCap = 128

var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, journalKeyCap)
	},
}

// recordKey returns the key a record is stored under, for example
//
//	key := recordKey("run:", "run-V1StGXR8_Z5jdHi6B-myT")
//	defer releaseKey(key)
func recordKey(prefix, id string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, id...)
}

// indexValuePrefix returns the prefix shared by every entry that indexes value
// under indexName, separator included. Everything after it is the record id:
//
//	p := indexValuePrefix("run:", "started", ts) // "run:idx:started:<ts>:"
func indexValuePrefix(prefix, indexName, value string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	buf = append(buf, "idx:"...)
	buf = append(buf, indexName...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	return append(buf, ':')
}

// releaseKey hands a key back to the pool. The slice must not be used afterwards.
func releaseKey(key []byte) {
	if cap(key) > 4*journalKeyCap {
		return
	}
	keyPool.Put(key[:0])
}
