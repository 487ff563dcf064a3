package repository

import (
	"context"

	"github.com/cwrk-planet/liar-service/internal/domain"
)

type RoomRepository interface {
	// Создаёт комнату; ErrAlreadyExists при коллизии кода
	Create(ctx context.Context, r *domain.Room) error
	Get(ctx context.Context, code string) (*domain.Room, error)
	// Есть ли не завершённая комната с таким кодом
	ExistsActive(ctx context.Context, code string) (bool, error)
	Update(ctx context.Context, r *domain.Room) error
	Delete(ctx context.Context, code string) error
}

type ParticipantRepository interface {
	Add(ctx context.Context, p *domain.Participant) error
	Get(ctx context.Context, id string) (*domain.Participant, error)
	// Активные участники комнаты в порядке входа
	ListActive(ctx context.Context, roomCode string) ([]domain.Participant, error)
	Update(ctx context.Context, p *domain.Participant) error
	UpdateMany(ctx context.Context, ps []domain.Participant) error
	DeleteByRoom(ctx context.Context, roomCode string) error
}

type RoundRepository interface {
	// ErrAlreadyExists, если раунд с таким индексом уже есть
	Create(ctx context.Context, r *domain.Round) error
	Exists(ctx context.Context, roomCode string, idx int) (bool, error)
	Get(ctx context.Context, roomCode string, idx int) (*domain.Round, error)
	Update(ctx context.Context, r *domain.Round) error
	// Удаляет раунды комнаты вместе с бюллетенями и высказываниями
	DeleteByRoom(ctx context.Context, roomCode string) error
}

type BallotRepository interface {
	// ErrAlreadyExists при повторном голосе (round, voter, final)
	Insert(ctx context.Context, b *domain.Ballot) error
	ListByRound(ctx context.Context, roundID string, final bool) ([]domain.Ballot, error)
	Count(ctx context.Context, roundID string, final bool) (int, error)
}

type StatementRepository interface {
	Insert(ctx context.Context, s *domain.Statement) error
	ListByRound(ctx context.Context, roundID string) ([]domain.Statement, error)
	// Exists проверяет высказывание участника в заданном проходе
	Exists(ctx context.Context, roundID, participantID string, kind domain.StatementKind, pass int) (bool, error)
	Count(ctx context.Context, roundID string, kind domain.StatementKind, pass int) (int, error)
}

type ThemeRepository interface {
	// Случайная активная тема группы; пустая группа: любая тема
	Pick(ctx context.Context, group string) (*domain.Theme, error)
}

type AuditRepository interface {
	Append(ctx context.Context, e domain.AuditEntry) error
}

// Store собирает все репозитории игрового состояния.
type Store struct {
	Rooms        RoomRepository
	Participants ParticipantRepository
	Rounds       RoundRepository
	Ballots      BallotRepository
	Statements   StatementRepository
	Themes       ThemeRepository
}
