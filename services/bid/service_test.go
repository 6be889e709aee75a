package bid

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/errutil"
	"flextasker/services/notification"
	"flextasker/services/task"
	"flextasker/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Bid{}, &task.Task{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node}), db
}

// enqueuerFake captures enqueued tasks in place of a Redis-backed client.
type enqueuerFake struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *enqueuerFake) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (f *enqueuerFake) typed(taskType string) []*asynq.Task {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*asynq.Task
	for _, task := range f.tasks {
		if task.Type() == taskType {
			out = append(out, task)
		}
	}
	return out
}

func newTestServiceWithQueue(t *testing.T, q *enqueuerFake) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Bid{}, &task.Task{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node, Asynq: q}), db
}

func seedTask(t *testing.T, db *gorm.DB, owner string, status task.Status, budget string) *task.Task {
	t.Helper()

	now := time.Now()
	tk := &task.Task{
		ID:         "task-" + owner + "-" + string(status),
		OwnerID:    owner,
		Title:      "fix the fence",
		Budget:     decimal.RequireFromString(budget),
		BudgetType: task.BudgetFixed,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(tk).Error)
	return tk
}

func requireStatus(t *testing.T, err error, want errutil.CoreStatus) {
	t.Helper()

	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, want, be.Status())
}

func TestCreateBid(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")

	b, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID:      tk.ID,
		Amount:      decimal.RequireFromString("90"),
		Description: "done by friday",
		Timeline:    "3 days",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, b.Status)
	require.False(t, b.SubmittedAt.IsZero())
	require.Nil(t, b.RespondedAt)
}

func TestCreateBidOnOwnTask(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")

	_, err := svc.Create(context.Background(), "owner", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("90"),
	})
	requireStatus(t, err, errutil.StatusConflict)

	var count int64
	require.NoError(t, db.Model(&Bid{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateBidValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: "task-1",
		Amount: decimal.Zero,
	})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.Create(context.Background(), "bidder", CreateBidRequest{
		Amount: decimal.RequireFromString("10"),
	})
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestCreateBidTaskNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: "missing",
		Amount: decimal.RequireFromString("10"),
	})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestCreateBidTaskNotOpen(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusInProgress, "100")

	_, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("10"),
	})
	requireStatus(t, err, errutil.StatusConflict)
}

func TestCreateBidDeadlinePassed(t *testing.T) {
	svc, db := newTestService(t)

	past := time.Now().Add(-time.Hour)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	require.NoError(t, db.Model(&task.Task{}).Where("id = ?", tk.ID).Update("deadline", past).Error)

	_, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("10"),
	})
	requireStatus(t, err, errutil.StatusConflict)
}

func TestCreateBidDuplicateThenWithdraw(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	first, err := svc.Create(ctx, "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("80"),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("70"),
	})
	requireStatus(t, err, errutil.StatusConflict)

	_, err = svc.Withdraw(ctx, first.ID, "bidder")
	require.NoError(t, err)

	again, err := svc.Create(ctx, "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("75"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, again.Status)
}

func TestAcceptBid(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	loser, err := svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("95")})
	require.NoError(t, err)

	winner, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, winner.ID, "owner")
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	rejected, err := svc.Get(ctx, loser.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RespondedAt)

	var tkAfter task.Task
	require.NoError(t, db.First(&tkAfter, "id = ?", tk.ID).Error)
	require.Equal(t, task.StatusInProgress, tkAfter.Status)
	require.NotNil(t, tkAfter.AssigneeID)
	require.Equal(t, "b1", *tkAfter.AssigneeID)
	require.NotNil(t, tkAfter.StartedAt)

	var pending int64
	require.NoError(t, db.Model(&Bid{}).Where("task_id = ? AND status = ?", tk.ID, StatusPending).Count(&pending).Error)
	require.Zero(t, pending)

	var acceptedCount int64
	require.NoError(t, db.Model(&Bid{}).Where("task_id = ? AND status = ?", tk.ID, StatusAccepted).Count(&acceptedCount).Error)
	require.Equal(t, int64(1), acceptedCount)
}

func TestAcceptBidWrongOwner(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "bidder", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, b.ID, "someone-else")
	requireStatus(t, err, errutil.StatusForbidden)

	after, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, after.Status)
}

func TestAcceptBidAfterTaskAssigned(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	first, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("85")})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, first.ID, "owner")
	require.NoError(t, err)

	// The sweep already rejected the second bid; a late accept must conflict
	// without reviving it.
	_, err = svc.Accept(ctx, second.ID, "owner")
	requireStatus(t, err, errutil.StatusConflict)

	after, err := svc.Get(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, after.Status)
}

func TestTerminalBidsNeverMutate(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "bidder", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, b.ID, "bidder")
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, b.ID, "bidder")
	requireStatus(t, err, errutil.StatusConflict)

	_, err = svc.Reject(ctx, b.ID, "owner")
	requireStatus(t, err, errutil.StatusConflict)

	_, err = svc.Accept(ctx, b.ID, "owner")
	requireStatus(t, err, errutil.StatusConflict)

	after, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, StatusWithdrawn, after.Status)
}

func TestRejectBid(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)
	other, err := svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("85")})
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, b.ID, "owner")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RespondedAt)

	// Rejecting one bid leaves the others alone.
	untouched, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, untouched.Status)

	var tkAfter task.Task
	require.NoError(t, db.First(&tkAfter, "id = ?", tk.ID).Error)
	require.Equal(t, task.StatusOpen, tkAfter.Status)
}

func TestWithdrawBidWrongBidder(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "bidder", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, b.ID, "impostor")
	requireStatus(t, err, errutil.StatusForbidden)
}

func TestUpdateBid(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "bidder", CreateBidRequest{
		TaskID:      tk.ID,
		Amount:      decimal.RequireFromString("90"),
		Description: "initial",
	})
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("85")
	updated, err := svc.Update(ctx, b.ID, "bidder", UpdateBidRequest{Amount: &newAmount})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(newAmount))
	require.Equal(t, "initial", updated.Description)
	require.Equal(t, StatusPending, updated.Status)
}

func TestUpdateBidNotPending(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "bidder", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, b.ID, "owner")
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("80")
	_, err = svc.Update(ctx, b.ID, "bidder", UpdateBidRequest{Amount: &newAmount})
	requireStatus(t, err, errutil.StatusConflict)
}

func TestUpdateBidWrongBidder(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	b, err := svc.Create(ctx, "bidder", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)

	desc := "hijack"
	_, err = svc.Update(ctx, b.ID, "impostor", UpdateBidRequest{Description: &desc})
	requireStatus(t, err, errutil.StatusForbidden)
}

func TestSearchBidsScoping(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	_, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("85")})
	require.NoError(t, err)

	asOwner, err := svc.Search(ctx, "owner", SearchBidsRequest{TaskID: tk.ID})
	require.NoError(t, err)
	require.Len(t, asOwner.Bids, 2)

	asBidder, err := svc.Search(ctx, "b1", SearchBidsRequest{TaskID: tk.ID})
	require.NoError(t, err)
	require.Len(t, asBidder.Bids, 1)
	require.Equal(t, "b1", asBidder.Bids[0].BidderID)
}

func TestSearchBidsPagination(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		b := &Bid{
			ID:          svc.node.Generate().String(),
			TaskID:      tk.ID,
			BidderID:    "bidder",
			Amount:      decimal.RequireFromString("50"),
			Status:      StatusWithdrawn,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			CreatedAt:   base,
			UpdatedAt:   base,
		}
		require.NoError(t, db.Create(b).Error)
	}

	req := SearchBidsRequest{TaskID: tk.ID}
	req.Limit = 2
	page1, err := svc.Search(ctx, "owner", req)
	require.NoError(t, err)
	require.Len(t, page1.Bids, 2)
	require.True(t, page1.PageInfo.HasMore)

	req.Cursor = page1.PageInfo.NextCursor
	page2, err := svc.Search(ctx, "owner", req)
	require.NoError(t, err)
	require.Len(t, page2.Bids, 2)
	require.True(t, page2.Bids[0].SubmittedAt.Before(page1.Bids[1].SubmittedAt))
}

func TestTaskStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	tk := seedTask(t, svc.db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	_, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("80")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("120")})
	require.NoError(t, err)

	stats, err := svc.TaskStatistics(ctx, tk.ID, "owner")
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalBids)
	require.True(t, stats.MinAmount.Equal(decimal.RequireFromString("80")))
	require.True(t, stats.MaxAmount.Equal(decimal.RequireFromString("120")))
	require.True(t, stats.AverageAmount.Equal(decimal.RequireFromString("100")))
	require.Equal(t, int64(2), stats.ByStatus[StatusPending])

	// A bidder on the task may read the aggregate too.
	_, err = svc.TaskStatistics(ctx, tk.ID, "b1")
	require.NoError(t, err)

	_, err = svc.TaskStatistics(ctx, tk.ID, "stranger")
	requireStatus(t, err, errutil.StatusForbidden)
}

func TestCreateBidOverbudgetWarning(t *testing.T) {
	q := &enqueuerFake{}
	svc, db := newTestServiceWithQueue(t, q)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")

	b, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("151"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, b.Status)

	warnings := q.typed(notification.TypeBidOverbudget)
	require.Len(t, warnings, 1)

	var payload notification.BidOverbudgetPayload
	require.NoError(t, json.Unmarshal(warnings[0].Payload(), &payload))
	require.Equal(t, tk.ID, payload.TaskID)
	require.Equal(t, b.ID, payload.BidID)
	require.Equal(t, "bidder", payload.BidderID)
	require.Equal(t, "owner", payload.OwnerID)
	require.True(t, decimal.RequireFromString(payload.Amount).Equal(b.Amount))
	require.True(t, decimal.RequireFromString(payload.Budget).Equal(tk.Budget))
}

func TestCreateBidAtThresholdNoWarning(t *testing.T) {
	q := &enqueuerFake{}
	svc, db := newTestServiceWithQueue(t, q)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")

	// The advisory fires strictly above budget * 1.5.
	_, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("150"),
	})
	require.NoError(t, err)
	require.Empty(t, q.typed(notification.TypeBidOverbudget))
}

func TestCreateBidHourlyBudgetNoWarning(t *testing.T) {
	q := &enqueuerFake{}
	svc, db := newTestServiceWithQueue(t, q)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	require.NoError(t, db.Model(&task.Task{}).Where("id = ?", tk.ID).Update("budget_type", task.BudgetHourly).Error)

	_, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("300"),
	})
	require.NoError(t, err)
	require.Empty(t, q.typed(notification.TypeBidOverbudget))
}

func TestCreateBidEnqueueFailureDoesNotBlock(t *testing.T) {
	q := &enqueuerFake{err: errors.New("redis down")}
	svc, db := newTestServiceWithQueue(t, q)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")

	b, err := svc.Create(context.Background(), "bidder", CreateBidRequest{
		TaskID: tk.ID,
		Amount: decimal.RequireFromString("151"),
	})
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
}

func TestAcceptBidNotifiesDecisions(t *testing.T) {
	q := &enqueuerFake{}
	svc, db := newTestServiceWithQueue(t, q)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	winner, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)
	loser, err := svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("95")})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, winner.ID, "owner")
	require.NoError(t, err)

	decisions := q.typed(notification.TypeBidDecision)
	require.Len(t, decisions, 2)

	byBidder := make(map[string]notification.BidDecisionPayload)
	for _, d := range decisions {
		var payload notification.BidDecisionPayload
		require.NoError(t, json.Unmarshal(d.Payload(), &payload))
		byBidder[payload.BidderID] = payload
	}

	require.Equal(t, string(StatusAccepted), byBidder["b1"].Decision)
	require.Equal(t, winner.ID, byBidder["b1"].BidID)
	require.Equal(t, string(StatusRejected), byBidder["b2"].Decision)
	require.Equal(t, loser.ID, byBidder["b2"].BidID)
}

func TestAcceptBidConcurrent(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	first, err := svc.Create(ctx, "b1", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, "b2", CreateBidRequest{TaskID: tk.ID, Amount: decimal.RequireFromString("85")})
	require.NoError(t, err)

	bidders := map[string]string{first.ID: "b1", second.ID: "b2"}

	ids := []string{first.ID, second.ID}
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, id, "owner")
		}(i, id)
	}
	wg.Wait()

	var winnerID string
	var conflicts int
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winnerID, "both accepts succeeded")
			winnerID = ids[i]
			continue
		}
		requireStatus(t, err, errutil.StatusConflict)
		conflicts++
	}
	require.NotEmpty(t, winnerID, "no accept succeeded")
	require.Equal(t, 1, conflicts)

	var tkAfter task.Task
	require.NoError(t, db.First(&tkAfter, "id = ?", tk.ID).Error)
	require.Equal(t, task.StatusInProgress, tkAfter.Status)
	require.NotNil(t, tkAfter.AssigneeID)
	require.Equal(t, bidders[winnerID], *tkAfter.AssigneeID)

	var accepted, pending int64
	require.NoError(t, db.Model(&Bid{}).Where("task_id = ? AND status = ?", tk.ID, StatusAccepted).Count(&accepted).Error)
	require.NoError(t, db.Model(&Bid{}).Where("task_id = ? AND status = ?", tk.ID, StatusPending).Count(&pending).Error)
	require.Equal(t, int64(1), accepted)
	require.Zero(t, pending)
}

func TestSearchBidsPaginationTiedTimestamps(t *testing.T) {
	svc, db := newTestService(t)
	tk := seedTask(t, db, "owner", task.StatusOpen, "100")
	ctx := context.Background()

	// Three bids sharing one submitted_at; only the id breaks the tie.
	tied := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		b := &Bid{
			ID:          svc.node.Generate().String(),
			TaskID:      tk.ID,
			BidderID:    "bidder",
			Amount:      decimal.RequireFromString("50"),
			Status:      StatusWithdrawn,
			SubmittedAt: tied,
			CreatedAt:   tied,
			UpdatedAt:   tied,
		}
		require.NoError(t, db.Create(b).Error)
	}

	seen := make(map[string]bool)
	req := SearchBidsRequest{TaskID: tk.ID}
	req.Limit = 1
	for i := 0; i < 3; i++ {
		page, err := svc.Search(ctx, "owner", req)
		require.NoError(t, err)
		require.Len(t, page.Bids, 1)
		require.False(t, seen[page.Bids[0].ID], "row %s repeated across pages", page.Bids[0].ID)
		seen[page.Bids[0].ID] = true
		req.Cursor = page.PageInfo.NextCursor
	}
	require.Len(t, seen, 3)
}
