// Package memstore is an in-process implementation of the repository
// contracts. It backs the "memory" storage driver and the service tests.
package memstore

import (
	"sort"
	"sync"

	"github.com/cwrk-planet/liar-service/internal/domain"
	"github.com/cwrk-planet/liar-service/internal/repository"
)

type participantRow struct {
	p   domain.Participant
	seq int
}

// DB holds all game records behind a single lock.
type DB struct {
	mu sync.RWMutex

	rooms        map[string]domain.Room
	participants map[string]participantRow
	rounds       map[string]domain.Round // round id -> round
	ballots      map[string][]domain.Ballot
	statements   map[string][]domain.Statement
	themes       []domain.Theme
	audit        []domain.AuditEntry

	seq int
}

func New() *DB {
	return &DB{
		rooms:        make(map[string]domain.Room),
		participants: make(map[string]participantRow),
		rounds:       make(map[string]domain.Round),
		ballots:      make(map[string][]domain.Ballot),
		statements:   make(map[string][]domain.Statement),
	}
}

// Store returns repository views over the same data.
func (db *DB) Store() repository.Store {
	return repository.Store{
		Rooms:        &RoomRepo{db: db},
		Participants: &ParticipantRepo{db: db},
		Rounds:       &RoundRepo{db: db},
		Ballots:      &BallotRepo{db: db},
		Statements:   &StatementRepo{db: db},
		Themes:       &ThemeSource{db: db},
	}
}

func (db *DB) Audit() *AuditRepo { return &AuditRepo{db: db} }

// SeedThemes заменяет набор тем.
func (db *DB) SeedThemes(themes ...domain.Theme) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.themes = append([]domain.Theme(nil), themes...)
}

func (db *DB) roundByIndex(roomCode string, idx int) (domain.Round, bool) {
	for _, r := range db.rounds {
		if r.RoomCode == roomCode && r.Index == idx {
			return r, true
		}
	}
	return domain.Round{}, false
}

func (db *DB) sortedParticipants(roomCode string, activeOnly bool) []domain.Participant {
	rows := make([]participantRow, 0, 8)
	for _, row := range db.participants {
		if row.p.RoomCode != roomCode {
			continue
		}
		if activeOnly && !row.p.Active() {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, cloneParticipant(row.p))
	}
	return out
}

func cloneParticipant(p domain.Participant) domain.Participant {
	if p.Word != nil {
		w := *p.Word
		p.Word = &w
	}
	if p.LeftAt != nil {
		t := *p.LeftAt
		p.LeftAt = &t
	}
	return p
}

func cloneRound(r domain.Round) domain.Round {
	if r.AccusedID != nil {
		id := *r.AccusedID
		r.AccusedID = &id
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		r.EndedAt = &t
	}
	return r
}

func cloneRoom(r domain.Room) domain.Room {
	if r.EndedAt != nil {
		t := *r.EndedAt
		r.EndedAt = &t
	}
	return r
}
