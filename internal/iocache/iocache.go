package iocache

import (
	"sync"

	"github.com/huangsam/miklabel/internal/contract"
)

// CacheStoreManager holds the reshape cache and the run store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	reshape      contract.CacheStore
	runs         contract.RunStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wraps already opened stores. Either may be nil.
func NewCacheStoreManager(reshape contract.CacheStore, runs contract.RunStore) *CacheStoreManager {
	return &CacheStoreManager{reshape: reshape, runs: runs}
}

// GetReshapeStore returns the reshape CacheStore.
func (mgr *CacheStoreManager) GetReshapeStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.reshape
}

// GetRunStore returns the RunStore.
func (mgr *CacheStoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
