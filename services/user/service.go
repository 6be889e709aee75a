package user

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/errutil"
	"flextasker/pkg/repository"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[User](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if req.Email == "" {
		return nil, errutil.ValidationFailed("email is required")
	}

	existing, err := s.repo.FindOne(ctx, &User{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("email already registered")
	}

	now := time.Now()
	u := &User{
		ID:        s.node.Generate().String(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		zap.L().Error("failed to create user", zap.Error(err), zap.String("email", req.Email))
		return nil, err
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.FindOne(ctx, &User{ID: userID})
	if err != nil {
		zap.L().Error("failed to query user", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found")
	}
	return u, nil
}

// GetBalance returns the running accumulators for a user.
func (s *Service) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		UserID:        u.ID,
		TotalEarnings: u.TotalEarnings,
		TotalSpent:    u.TotalSpent,
	}, nil
}
