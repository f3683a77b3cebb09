package session

import "container/list"

// removeFromQueue deletes every occurrence of id from a drawer queue,
// mirroring store.RemoveFromDrawerQueue's LRem semantics for the
// in-memory copy kept by each Room.
func removeFromQueue(q *list.List, id UserIDType) {
	for e := q.Front(); e != nil; {
		next := e.Next()
		if uid, ok := e.Value.(UserIDType); ok && uid == id {
			q.Remove(e)
		}
		e = next
	}
}
