package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/show"
)

type ShowService struct {
	showRepo show.Repository
}

func NewShowService(showRepo show.Repository) *ShowService {
	return &ShowService{showRepo: showRepo}
}

type CreateShowInput struct {
	Name     string
	StartsAt *time.Time
}

func (s *ShowService) CreateShow(ctx context.Context, input CreateShowInput) (*show.Show, error) {
	sh := show.NewShow(input.Name, input.StartsAt)
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	if err := s.showRepo.Create(ctx, sh); err != nil {
		return nil, storeError("公演作成", err)
	}
	return sh, nil
}

func (s *ShowService) GetShow(ctx context.Context, id string) (*show.Show, error) {
	sh, err := s.showRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("公演取得", err)
	}
	return sh, nil
}
