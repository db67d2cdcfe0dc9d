package utils

import "sync"

type Set[K comparable] struct {
	m map[K]bool
	sync.RWMutex
}

func NewSet[K comparable](sl ...K) *Set[K] {
	m := map[K]bool{}
	for _, s := range sl {
		m[s] = true
	}
	return &Set[K]{
		m: m,
	}
}

func (s *Set[K]) Add(item K) {
	s.Lock()
	defer s.Unlock()
	s.m[item] = true
}

func (s *Set[K]) Remove(item K) {
	s.Lock()
	defer s.Unlock()
	delete(s.m, item)
}

func (s *Set[K]) Has(item K) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.m[item]
	return ok
}

func (s *Set[K]) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.m)
}

func (s *Set[K]) Clear() {
	s.Lock()
	defer s.Unlock()
	s.m = make(map[K]bool)
}
