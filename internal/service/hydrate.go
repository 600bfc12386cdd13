package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/repository"
)

// hydrateCaseFiles attaches evidence items and user summaries to list in place.
func hydrateCaseFiles(ctx context.Context, store repository.Store, list []domain.CaseFile) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(list))
	userIDs := make([]int64, 0, len(list)*2)
	for _, cf := range list {
		ids = append(ids, cf.ID)
		userIDs = append(userIDs, cf.TechnicianID)
		if cf.CoordinatorID != nil {
			userIDs = append(userIDs, *cf.CoordinatorID)
		}
	}

	var (
		items []domain.EvidenceItem
		users []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = store.EvidenceItems().ListByCaseFileIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = store.Users().ListByIDs(gctx, userIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return storeError(resourceCaseFile, err)
	}

	summaries := summaryIndex(users)
	byCaseFile := make(map[int64][]domain.EvidenceItem, len(list))
	for _, item := range items {
		item.Technician = summaries[item.TechnicianID]
		byCaseFile[item.CaseFileID] = append(byCaseFile[item.CaseFileID], item)
	}

	for i := range list {
		cf := &list[i]
		cf.Technician = summaries[cf.TechnicianID]
		if cf.CoordinatorID != nil {
			cf.Coordinator = summaries[*cf.CoordinatorID]
		}
		cf.EvidenceItems = byCaseFile[cf.ID]
		if cf.EvidenceItems == nil {
			cf.EvidenceItems = []domain.EvidenceItem{}
		}
	}
	return nil
}

func hydrateEvidenceItems(ctx context.Context, store repository.Store, items []domain.EvidenceItem) error {
	if len(items) == 0 {
		return nil
	}
	userIDs := make([]int64, 0, len(items))
	for _, item := range items {
		userIDs = append(userIDs, item.TechnicianID)
	}
	users, err := store.Users().ListByIDs(ctx, userIDs)
	if err != nil {
		return storeError(resourceUser, err)
	}
	summaries := summaryIndex(users)
	for i := range items {
		items[i].Technician = summaries[items[i].TechnicianID]
	}
	return nil
}

func summaryIndex(users []domain.User) map[int64]*domain.UserSummary {
	out := make(map[int64]*domain.UserSummary, len(users))
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out
}
