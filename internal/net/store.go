package net

import "sort"

// SessionStore indexes the live console sessions.
// Accessed only from the game loop goroutine.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) { st.sessions[s.ID] = s }

func (st *SessionStore) Remove(id uint64) *Session {
	s := st.sessions[id]
	delete(st.sessions, id)
	return s
}

func (st *SessionStore) Get(id uint64) *Session { return st.sessions[id] }
func (st *SessionStore) Count() int             { return len(st.sessions) }

// Each visits sessions in ID order. fn may remove the visited session.
func (st *SessionStore) Each(fn func(*Session)) {
	ids := make([]uint64, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if s := st.sessions[id]; s != nil {
			fn(s)
		}
	}
}
