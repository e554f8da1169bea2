package tasklist_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmgr/internal/auth"
	"taskmgr/internal/backend/rest"
	"taskmgr/internal/service"
	"taskmgr/internal/session"
	"taskmgr/internal/tasklist"
	"taskmgr/internal/testutil"
)

func loggedIn(t *testing.T) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(session.Session{Token: "t1", DisplayName: "Alice"}))
	return store
}

func TestLoad_FirstPage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(7)
	c := tasklist.New(svc, loggedIn(t), 5)

	assert.False(t, c.Loaded())
	page, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, c.Loaded())
	assert.Equal(t, 0, c.Current())
	assert.Len(t, page.Content, 5)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, int64(7), page.TotalElements)
	assert.Equal(t, "Task 7", page.Content[0].Title)
	assert.Equal(t, []int{0}, svc.PageRequests)
}

func TestPages_ContentWithinSize(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(12)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	first, err := c.Load(ctx)
	require.NoError(t, err)

	seen := map[int64]bool{}
	for p := 0; p < first.TotalPages; p++ {
		page, err := c.Goto(ctx, p)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Content), 5)
		for _, task := range page.Content {
			assert.False(t, seen[task.ID], "task %d on two pages", task.ID)
			seen[task.ID] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestNavigation_Clamped(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(7)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	_, err := c.Load(ctx)
	require.NoError(t, err)

	r, moved := c.Previous()
	assert.False(t, moved, "previous on first page")
	assert.Equal(t, 0, r.Page)

	r, moved = c.Next()
	require.True(t, moved)
	assert.Equal(t, 1, r.Page)
	_, err = c.Apply(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Current())

	r, moved = c.Next()
	assert.False(t, moved, "next on last page")
	assert.Equal(t, 1, r.Page)

	r, moved = c.Previous()
	require.True(t, moved)
	assert.Equal(t, 0, r.Page)
}

func TestNavigation_EmptyList(t *testing.T) {
	c := tasklist.New(testutil.NewFakeService(), loggedIn(t), 5)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	_, moved := c.Next()
	assert.False(t, moved)
	_, moved = c.Previous()
	assert.False(t, moved)
}

func TestCreate_ResetsToFirstPage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(12)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	_, err := c.Goto(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, c.Current())

	r, err := c.Create(ctx, service.NewTask{Title: "  Buy milk  "})
	require.NoError(t, err)
	assert.Equal(t, tasklist.Refresh{Page: 0}, r)
	assert.Equal(t, 2, c.Current(), "page changes only when the refresh is applied")

	page, err := c.Apply(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Current())
	assert.Equal(t, 0, svc.LastPageRequest())
	assert.Equal(t, "Buy milk", page.Content[0].Title)
	assert.Equal(t, service.StatusPending, page.Content[0].Status)
}

func TestCreate_FailedRefreshKeepsDisplayedPage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(12)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	_, err := c.Goto(ctx, 2)
	require.NoError(t, err)

	r, err := c.Create(ctx, service.NewTask{Title: "Buy milk"})
	require.NoError(t, err)

	svc.ListErr = service.NetworkError(errors.New("connection refused"))
	_, err = c.Apply(ctx, r)
	require.Error(t, err)
	assert.Equal(t, tasklist.LoadFailed, c.Message())

	assert.Equal(t, 2, c.Current())
	assert.Equal(t, c.Current(), c.Page().PageNumber)

	prev, moved := c.Previous()
	assert.True(t, moved)
	assert.Equal(t, tasklist.Refresh{Page: 1}, prev)
	_, moved = c.Next()
	assert.False(t, moved, "page 3 of 3 is the last page")
}

func TestCreate_Validation(t *testing.T) {
	svc := testutil.NewFakeService()
	c := tasklist.New(svc, loggedIn(t), 5)

	_, err := c.Create(context.Background(), service.NewTask{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, "title is required", c.Message())

	_, err = c.Create(context.Background(), service.NewTask{Title: "x", Status: "LATER"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
	assert.Empty(t, svc.Tasks())
}

func TestUpdateStatus_RefreshesCurrentPage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(7)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	_, err := c.Goto(ctx, 1)
	require.NoError(t, err)
	task, err := c.Lookup(1)
	require.NoError(t, err)

	r, err := c.UpdateStatus(ctx, task.ID, service.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, tasklist.Refresh{Page: 1}, r)

	page, err := c.Apply(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, service.StatusInProgress, page.Content[0].Status)
	assert.Equal(t, 1, c.Current())
}

func TestDelete_OnlyTaskOnLaterPageStepsBack(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(6)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	page, err := c.Goto(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)

	r, err := c.Delete(ctx, page.Content[0].ID)
	require.NoError(t, err)
	assert.Equal(t, tasklist.Refresh{Page: 0}, r)

	_, err = c.Apply(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.LastPageRequest())
	assert.Equal(t, 0, c.Current())
}

func TestDelete_KeepsPage(t *testing.T) {
	tests := []struct {
		name  string
		tasks int
		page  int
	}{
		{name: "several tasks on later page", tasks: 7, page: 1},
		{name: "only task on first page", tasks: 1, page: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTasks(tt.tasks)
			c := tasklist.New(svc, loggedIn(t), 5)
			ctx := context.Background()

			page, err := c.Goto(ctx, tt.page)
			require.NoError(t, err)

			r, err := c.Delete(ctx, page.Content[0].ID)
			require.NoError(t, err)
			assert.Equal(t, tasklist.Refresh{Page: tt.page}, r)
		})
	}
}

func TestNoSession_NoRequest(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(1)
	c := tasklist.New(svc, session.NewMemoryStore(), 5)
	ctx := context.Background()

	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, tasklist.ErrNotLoggedIn)
	_, err = c.Create(ctx, service.NewTask{Title: "x"})
	assert.ErrorIs(t, err, tasklist.ErrNotLoggedIn)
	_, err = c.UpdateStatus(ctx, 1, service.StatusDone)
	assert.ErrorIs(t, err, tasklist.ErrNotLoggedIn)
	_, err = c.Delete(ctx, 1)
	assert.ErrorIs(t, err, tasklist.ErrNotLoggedIn)
	_, err = c.All(ctx)
	assert.ErrorIs(t, err, tasklist.ErrNotLoggedIn)

	assert.Empty(t, svc.PageRequests)
	assert.Len(t, svc.Tasks(), 1)
}

func TestUnauthorized_ClearsSession(t *testing.T) {
	tests := []struct {
		name   string
		status int
		inject func(svc *testutil.FakeService, err error)
		run    func(c *tasklist.Controller) error
	}{
		{
			name:   "list 401",
			status: http.StatusUnauthorized,
			inject: func(svc *testutil.FakeService, err error) { svc.ListErr = err },
			run: func(c *tasklist.Controller) error {
				_, err := c.Load(context.Background())
				return err
			},
		},
		{
			name:   "list 403",
			status: http.StatusForbidden,
			inject: func(svc *testutil.FakeService, err error) { svc.ListErr = err },
			run: func(c *tasklist.Controller) error {
				_, err := c.Load(context.Background())
				return err
			},
		},
		{
			name:   "create 403",
			status: http.StatusForbidden,
			inject: func(svc *testutil.FakeService, err error) { svc.CreateTaskErr = err },
			run: func(c *tasklist.Controller) error {
				_, err := c.Create(context.Background(), service.NewTask{Title: "x"})
				return err
			},
		},
		{
			name:   "update 401",
			status: http.StatusUnauthorized,
			inject: func(svc *testutil.FakeService, err error) { svc.UpdateTaskErr = err },
			run: func(c *tasklist.Controller) error {
				_, err := c.UpdateStatus(context.Background(), 1, service.StatusDone)
				return err
			},
		},
		{
			name:   "delete 403",
			status: http.StatusForbidden,
			inject: func(svc *testutil.FakeService, err error) { svc.DeleteTaskErr = err },
			run: func(c *tasklist.Controller) error {
				_, err := c.Delete(context.Background(), 1)
				return err
			},
		},
		{
			name:   "list all 401",
			status: http.StatusUnauthorized,
			inject: func(svc *testutil.FakeService, err error) { svc.ListAllErr = err },
			run: func(c *tasklist.Controller) error {
				_, err := c.All(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTasks(1)
			store := loggedIn(t)
			c := tasklist.New(svc, store, 5)

			tt.inject(svc, service.StatusError(tt.status, "", nil))
			err := tt.run(c)

			assert.ErrorIs(t, err, tasklist.ErrSessionExpired)
			assert.True(t, service.IsUnauthorized(err))
			_, readErr := store.Read()
			assert.ErrorIs(t, readErr, session.ErrNoSession)
			assert.False(t, c.Loaded())
		})
	}
}

func TestFailure_KeepsPageAndRetainsMessage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(3)
	store := loggedIn(t)
	c := tasklist.New(svc, store, 5)
	ctx := context.Background()

	before, err := c.Load(ctx)
	require.NoError(t, err)

	svc.ListErr = service.NetworkError(errors.New("connection refused"))
	page, err := c.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, tasklist.LoadFailed, err.Error())
	assert.Equal(t, tasklist.LoadFailed, c.Message())
	assert.Equal(t, before, page)
	assert.Equal(t, before, c.Page())
	assert.True(t, session.Present(store))

	svc.ListErr = nil
	_, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Message(), "message clears on success")
}

func TestFailure_MutationMessages(t *testing.T) {
	svc := testutil.NewFakeService()
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	svc.CreateTaskErr = errors.New("boom")
	_, err := c.Create(ctx, service.NewTask{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, tasklist.CreateFailed, c.Message())

	_, err = c.UpdateStatus(ctx, 42, service.StatusDone)
	require.Error(t, err)
	assert.Equal(t, "Task not found", c.Message())

	_, err = c.Delete(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, "Task not found", c.Message())

	svc.DeleteTaskErr = service.StatusError(http.StatusNotFound, "", nil)
	_, err = c.Delete(ctx, 42)
	require.Error(t, err)
	assert.Equal(t, tasklist.DeleteFailed, c.Message())
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	svc.UpdateTaskErr = service.StatusError(http.StatusInternalServerError, "", nil)
	_, err = c.UpdateStatus(ctx, 42, service.StatusDone)
	require.Error(t, err)
	assert.Equal(t, tasklist.UpdateFailed, c.Message())
}

func TestApply_FailedNavigationKeepsCurrentPage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(7)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	_, err := c.Load(ctx)
	require.NoError(t, err)

	svc.ListErr = errors.New("boom")
	r, moved := c.Next()
	require.True(t, moved)
	_, err = c.Apply(ctx, r)
	require.Error(t, err)
	assert.Equal(t, 0, c.Current())
}

func TestApply_StaleResponseDiscarded(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(12)
	c := tasklist.New(svc, loggedIn(t), 5)
	ctx := context.Background()

	_, err := c.Load(ctx)
	require.NoError(t, err)

	// While page 1 is in flight the user jumps to page 2; page 2 is issued
	// later and must win even though page 1 resolves last.
	var (
		secondErr  error
		secondPage service.Page
	)
	svc.BeforeList = func(ctx context.Context, page int) {
		if page != 1 {
			return
		}
		svc.BeforeList = nil
		secondPage, secondErr = c.Goto(ctx, 2)
	}

	_, err = c.Goto(ctx, 1)
	assert.ErrorIs(t, err, tasklist.ErrStale)
	require.NoError(t, secondErr)

	assert.Equal(t, 2, c.Current())
	assert.Equal(t, secondPage, c.Page())
	assert.Equal(t, "Task 2", c.Page().Content[0].Title)
}

func TestGoto_Negative(t *testing.T) {
	svc := testutil.NewFakeService()
	c := tasklist.New(svc, loggedIn(t), 5)
	_, err := c.Goto(context.Background(), -1)
	require.Error(t, err)
	assert.Empty(t, svc.PageRequests)
}

func TestLookup(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTasks(3)
	c := tasklist.New(svc, loggedIn(t), 5)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	task, err := c.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "Task 3", task.Title)

	task, err = c.Lookup(3)
	require.NoError(t, err)
	assert.Equal(t, "Task 1", task.Title)

	_, err = c.Lookup(0)
	assert.Error(t, err)
	_, err = c.Lookup(4)
	assert.Error(t, err)
}

// TestScenario_BuyMilk walks the login, list, update, delete sequence against
// the HTTP fake through the real client.
func TestScenario_BuyMilk(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.AddUser("Alice", "a@b.com", "secret")
	store := session.NewMemoryStore()
	client, err := rest.NewWithTransport(srv.BaseURL(), nil, store, nil)
	require.NoError(t, err)
	ctx := context.Background()

	flow := auth.NewFlow(client, store)
	s, err := flow.Login(ctx, service.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)
	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, "Alice", got.DisplayName)

	c := tasklist.New(client, store, 5)
	r, err := c.Create(ctx, service.NewTask{Title: "Buy milk"})
	require.NoError(t, err)
	page, err := c.Apply(ctx, r)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Buy milk", page.Content[0].Title)
	assert.Equal(t, service.StatusPending, page.Content[0].Status)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, int64(1), page.TotalElements)

	id := page.Content[0].ID
	r, err = c.UpdateStatus(ctx, id, service.StatusDone)
	require.NoError(t, err)
	page, err = c.Apply(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, service.StatusDone, page.Content[0].Status)

	r, err = c.Delete(ctx, id)
	require.NoError(t, err)
	page, err = c.Apply(ctx, r)
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, int64(0), page.TotalElements)

	srv.RevokeTokens()
	_, err = c.Load(ctx)
	assert.ErrorIs(t, err, tasklist.ErrSessionExpired)
	assert.False(t, session.Present(store))

	var paths []string
	for _, req := range srv.Requests() {
		paths = append(paths, req.Method+" "+req.Path)
	}
	assert.Equal(t, []string{
		"POST /api/auth/login",
		"POST /api/tasks",
		"GET /api/tasks/paginated",
		"PUT /api/tasks/" + strconv.FormatInt(id, 10),
		"GET /api/tasks/paginated",
		"DELETE /api/tasks/" + strconv.FormatInt(id, 10),
		"GET /api/tasks/paginated",
		"GET /api/tasks/paginated",
	}, paths)
}
