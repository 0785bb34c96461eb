package game

import (
	"context"
	"time"

	"github.com/iamasit07/connect4-engine/internal/domain"
)

type GameRepository interface {
	CreateGame(ctx context.Context, g *domain.Game) error
	GetGame(ctx context.Context, id uint64) (*domain.Game, error)
	// UpdateGame runs fn against the stored game while holding it exclusively.
	// If fn returns an error nothing is written.
	UpdateGame(ctx context.Context, id uint64, fn func(g *domain.Game) error) (*domain.Game, error)
	ListGamesByPlayer(ctx context.Context, player string, limit int) ([]*domain.Game, error)
	LastGameID(ctx context.Context) (uint64, error)
	// DeleteFinishedBefore removes finished games last touched before cutoff
	// and returns their ids.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]uint64, error)
}

type CacheRepository interface {
	// SetIfNewer stores value unless the entry already holds a version at or
	// above version.
	SetIfNewer(ctx context.Context, key, value string, version int64, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type ConnectionManagerInterface interface {
	SendMessage(playerID string, message domain.ServerMessage) error
}

// Service is the entry point for game logic (facade)
type Service struct {
	Repo      GameRepository
	Cache     CacheRepository            // optional
	Conn      ConnectionManagerInterface // optional
	Registry  *Registry
	Namespace string
	CacheTTL  time.Duration
}

func NewService(repo GameRepository, namespace string) *Service {
	return &Service{
		Repo:      repo,
		Registry:  NewRegistry(),
		Namespace: namespace,
		CacheTTL:  10 * time.Minute,
	}
}

// ResumeRegistry positions the id counter after the newest stored game.
func (s *Service) ResumeRegistry(ctx context.Context) error {
	last, err := s.Repo.LastGameID(ctx)
	if err != nil {
		return err
	}
	s.Registry.Resume(last)
	return nil
}
