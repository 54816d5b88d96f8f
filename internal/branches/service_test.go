package branches

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

type fakeBranchRepo struct {
	branches map[uuid.UUID]*models.Branch
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{branches: map[uuid.UUID]*models.Branch{}}
}

func (f *fakeBranchRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeBranchRepo) Upsert(_ context.Context, branch *models.Branch) error {
	if _, ok := f.branches[branch.ID]; ok {
		return nil
	}
	clone := *branch
	f.branches[branch.ID] = &clone
	return nil
}

func (f *fakeBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Branch, error) {
	branch, ok := f.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *branch
	return &clone, nil
}

func (f *fakeBranchRepo) FindByOwner(_ context.Context, ownerID uuid.UUID) (*models.Branch, error) {
	for _, branch := range f.branches {
		if branch.OwnerID == ownerID {
			clone := *branch
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBranchRepo) List(_ context.Context, status *enums.BranchStatus) ([]models.Branch, error) {
	var out []models.Branch
	for _, branch := range f.branches {
		if status != nil && branch.Status != *status {
			continue
		}
		out = append(out, *branch)
	}
	return out, nil
}

func (f *fakeBranchRepo) UpdateStatus(_ context.Context, branchID uuid.UUID, status enums.BranchStatus) (bool, error) {
	branch, ok := f.branches[branchID]
	if !ok || branch.Status == status {
		return false, nil
	}
	branch.Status = status
	return true, nil
}

func seedBranch(repo *fakeBranchRepo, status enums.BranchStatus) *models.Branch {
	branch := &models.Branch{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Corner Grocer",
		Country: "AE",
		Status:  status,
	}
	repo.branches[branch.ID] = branch
	return branch
}

func TestGetByIDMissingBranch(t *testing.T) {
	svc, err := NewService(newFakeBranchRepo())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.GetByID(context.Background(), uuid.New())
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	repo := newFakeBranchRepo()
	seedBranch(repo, enums.BranchStatusActive)
	seedBranch(repo, enums.BranchStatusSuspended)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	active := enums.BranchStatusActive
	got, err := svc.List(context.Background(), &active)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Status != enums.BranchStatusActive {
		t.Fatalf("expected one active branch, got %v", got)
	}
}

func TestSetStatusRequiresPlatformRole(t *testing.T) {
	repo := newFakeBranchRepo()
	branch := seedBranch(repo, enums.BranchStatusActive)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	owner := actor.Actor{UserID: branch.OwnerID, Role: enums.RoleBranchAdmin, BranchID: &branch.ID}
	_, err = svc.SetStatus(context.Background(), owner, branch.ID, enums.BranchStatusSuspended)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if repo.branches[branch.ID].Status != enums.BranchStatusActive {
		t.Fatal("status changed despite forbidden actor")
	}
}

func TestSetStatusSuspendsStorefront(t *testing.T) {
	repo := newFakeBranchRepo()
	branch := seedBranch(repo, enums.BranchStatusActive)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	platform := actor.Actor{UserID: uuid.New(), Role: enums.RolePlatformAdmin}
	updated, err := svc.SetStatus(context.Background(), platform, branch.ID, enums.BranchStatusSuspended)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != enums.BranchStatusSuspended {
		t.Fatalf("expected suspended, got %s", updated.Status)
	}

	_, err = svc.SetStatus(context.Background(), platform, branch.ID, enums.BranchStatus("archived"))
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}
