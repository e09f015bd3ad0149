package app

import "github.com/pairwire/pairwire/internal/domain"

// MatchQueue is the insertion-ordered set of WAITING session ids.
// Selection is first-available, not a fairness guarantee. Like the
// Directory it is not self-locking; the orchestrator serializes access,
// which is what makes pairing exactly-once.
type MatchQueue struct {
	order []domain.SessionID
	index map[domain.SessionID]struct{}
}

func NewMatchQueue() *MatchQueue {
	return &MatchQueue{index: make(map[domain.SessionID]struct{})}
}

// Add parks sid in the queue. Reports false if it was already queued.
func (q *MatchQueue) Add(sid domain.SessionID) bool {
	if _, ok := q.index[sid]; ok {
		return false
	}
	q.order = append(q.order, sid)
	q.index[sid] = struct{}{}
	return true
}

// Remove drops sid from the queue. Reports false if it was not queued.
func (q *MatchQueue) Remove(sid domain.SessionID) bool {
	if _, ok := q.index[sid]; !ok {
		return false
	}
	delete(q.index, sid)
	for i, id := range q.order {
		if id == sid {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

// PopOther removes and returns the first queued session other than
// self. Used by the pairing step so a session can never match itself.
func (q *MatchQueue) PopOther(self domain.SessionID) (domain.SessionID, bool) {
	for _, id := range q.order {
		if id == self {
			continue
		}
		q.Remove(id)
		return id, true
	}
	return "", false
}

func (q *MatchQueue) Has(sid domain.SessionID) bool {
	_, ok := q.index[sid]
	return ok
}

func (q *MatchQueue) Len() int { return len(q.order) }
