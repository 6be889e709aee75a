package bid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"flextasker/pkg/db/option"
	"flextasker/pkg/db/pagination"
	"flextasker/pkg/errutil"
	"flextasker/pkg/rediskey"
	"flextasker/services/task"
)

const statsCacheTTL = 30 * time.Second

// Search lists bids visible to the requester: their own bids, plus every bid
// on tasks they own.
func (s *Service) Search(ctx context.Context, requesterID string, req SearchBidsRequest) (*SearchBidsResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 250 {
		limit = 20
	}

	query := &Bid{Status: req.Status}

	if req.TaskID != "" {
		t, err := s.tasks.FindOne(ctx, &task.Task{ID: req.TaskID})
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, errutil.NotFound("task not found")
		}

		query.TaskID = req.TaskID
		if t.OwnerID != requesterID {
			// Non-owners only ever see their own bids on the task.
			query.BidderID = requesterID
		}
	} else {
		query.BidderID = requesterID
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "submitted_at", OrderBy: "desc", Allow: map[string]bool{"submitted_at": true}}),
		option.WithOrder("id DESC"),
		option.WithLimit(limit + 1),
	}

	if req.Cursor != "" {
		cursor, err := pagination.DecodeCursor(req.Cursor)
		if err != nil {
			return nil, errutil.BadRequest("invalid cursor", errutil.WithErr(err))
		}
		before, err := time.Parse(time.RFC3339Nano, cursor.SubmittedAt)
		if err != nil {
			return nil, errutil.BadRequest("invalid cursor", errutil.WithErr(err))
		}
		// Ties on submitted_at fall back to the id so boundary rows are never
		// skipped between pages.
		opts = append(opts, option.ApplyKeysetBefore("submitted_at", before, cursor.ID))
	}

	bids, err := s.bids.Find(ctx, query, opts...)
	if err != nil {
		zap.L().Error("failed to search bids", zap.Error(err), zap.String("requester_id", requesterID))
		return nil, err
	}

	page, pageInfo := pagination.BuildCursorPageInfo(bids, limit, func(b *Bid) pagination.Cursor {
		return pagination.Cursor{
			SubmittedAt: b.SubmittedAt.UTC().Format(time.RFC3339Nano),
			ID:          b.ID,
		}
	})

	return &SearchBidsResponse{Bids: page, PageInfo: pageInfo}, nil
}

// TaskStatistics aggregates a task's bids. The task owner and anyone with an
// active bid on the task may read it. Results are cached briefly in Redis
// when a client is wired.
func (s *Service) TaskStatistics(ctx context.Context, taskID, requesterID string) (*TaskBidStatistics, error) {
	t, err := s.tasks.FindOne(ctx, &task.Task{ID: taskID})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errutil.NotFound("task not found")
	}

	if t.OwnerID != requesterID {
		own, err := s.bids.FindOne(ctx, &Bid{TaskID: taskID, BidderID: requesterID},
			option.ApplyOperator(option.Condition{Field: "status", Operator: option.NEQ, Value: StatusWithdrawn}),
		)
		if err != nil {
			return nil, err
		}
		if own == nil {
			return nil, errutil.Forbidden("not authorized to view bid statistics for this task")
		}
	}

	if cached := s.cachedStats(ctx, taskID); cached != nil {
		return cached, nil
	}

	bids, err := s.bids.Find(ctx, &Bid{TaskID: taskID})
	if err != nil {
		zap.L().Error("failed to query bids for statistics", zap.Error(err), zap.String("task_id", taskID))
		return nil, err
	}

	stats := computeStatistics(taskID, bids)
	s.cacheStats(ctx, taskID, stats)

	return stats, nil
}

func computeStatistics(taskID string, bids []*Bid) *TaskBidStatistics {
	stats := &TaskBidStatistics{
		TaskID:   taskID,
		ByStatus: make(map[Status]int64),
		ByDay:    make(map[string]int64),
	}

	for _, b := range bids {
		stats.TotalBids++
		stats.ByStatus[b.Status]++
		stats.ByDay[b.SubmittedAt.UTC().Format("2006-01-02")]++

		if stats.TotalBids == 1 {
			stats.MinAmount = b.Amount
			stats.MaxAmount = b.Amount
		} else {
			if b.Amount.LessThan(stats.MinAmount) {
				stats.MinAmount = b.Amount
			}
			if b.Amount.GreaterThan(stats.MaxAmount) {
				stats.MaxAmount = b.Amount
			}
		}
		stats.AverageAmount = stats.AverageAmount.Add(b.Amount)
	}

	if stats.TotalBids > 0 {
		stats.AverageAmount = stats.AverageAmount.DivRound(decimal.NewFromInt(stats.TotalBids), 2)
	}

	return stats
}

func (s *Service) cachedStats(ctx context.Context, taskID string) *TaskBidStatistics {
	if s.rdb == nil {
		return nil
	}

	raw, err := s.rdb.Get(ctx, rediskey.BuildTaskBidStatsKey(taskID)).Bytes()
	if err != nil {
		return nil
	}

	var stats TaskBidStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *Service) cacheStats(ctx context.Context, taskID string, stats *TaskBidStatistics) {
	if s.rdb == nil {
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}

	if err := s.rdb.Set(ctx, rediskey.BuildTaskBidStatsKey(taskID), raw, statsCacheTTL).Err(); err != nil {
		zap.L().Warn("failed to cache bid statistics", zap.Error(err), zap.String("task_id", taskID))
	}
}
