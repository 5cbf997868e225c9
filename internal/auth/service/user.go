package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

type UserService struct {
	Store store.Store
	MFA   *MFAController
}

// Profile returns the stored user together with its MFA status. A missing or
// deactivated account is ErrUserInactive.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, domain.MFAStatus, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.MFAStatus{}, ErrUserInactive
		}
		return domain.User{}, domain.MFAStatus{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.Active {
		return domain.User{}, domain.MFAStatus{}, ErrUserInactive
	}

	status, err := s.MFA.Status(ctx, userID)
	if err != nil {
		return domain.User{}, domain.MFAStatus{}, err
	}
	return u, status, nil
}

// Deactivate turns an account off. Outstanding refresh tokens stop working on
// their next use.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.Store.Users().SetActive(ctx, userID, false)
}
