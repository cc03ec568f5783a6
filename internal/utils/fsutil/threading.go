package fsutil

import (
	"path/filepath"
	"sort"
	"sync"
)

// Path mutex registry; capture writes and tree copies on the same path are serialised.
var (
	pathMutexes sync.Map
)

// GetPathMutex returns a mutex for the given path
func GetPathMutex(path string) *sync.Mutex {
	normalizedPath := filepath.Clean(path)

	actual, _ := pathMutexes.LoadOrStore(normalizedPath, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// acquireMutexes locks the given paths in sorted order and returns a release
// function. The release function is safe to call more than once.
func acquireMutexes(paths ...string) func() {
	sortedPaths := make([]string, len(paths))
	for i, p := range paths {
		sortedPaths[i] = filepath.Clean(p)
	}
	sort.Strings(sortedPaths)

	var mutexes []*sync.Mutex
	for i, path := range sortedPaths {
		if i > 0 && path == sortedPaths[i-1] {
			continue
		}
		mu := GetPathMutex(path)
		mu.Lock()
		mutexes = append(mutexes, mu)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(mutexes) - 1; i >= 0; i-- {
				mutexes[i].Unlock()
			}
		})
	}
}
