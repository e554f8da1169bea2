// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskmgr/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
// Tasks are listed newest first.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task // oldest first
	nextID int64
	clock  time.Time
	users  map[string]fakeAccount // email -> account

	// PageRequests records the page index of every ListTasksPaginated call.
	PageRequests []int

	// Error injection for testing
	RegisterErr   error
	LoginErr      error
	ListErr       error
	ListAllErr    error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error

	// BeforeList, if set, runs at the start of ListTasksPaginated with the lock released.
	BeforeList func(ctx context.Context, page int)
}

type fakeAccount struct {
	name     string
	password string
	token    string
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		users:  make(map[string]fakeAccount),
	}
}

// AddUser adds an account that Login accepts.
func (f *FakeService) AddUser(name, email, password, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeAccount{name: name, password: password, token: token}
}

// AddTask adds a task newer than every existing one and returns its id.
func (f *FakeService) AddTask(title string, status service.Status) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.add(service.NewTask{Title: title, Status: status}).ID
}

// AddTasks adds n tasks titled "Task 1".."Task n", oldest first.
func (f *FakeService) AddTasks(n int) {
	for i := 1; i <= n; i++ {
		f.AddTask("Task "+strconv.Itoa(i), service.StatusPending)
	}
}

// Tasks returns all tasks newest first.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.newestFirst()
}

// LastPageRequest returns the most recent page requested, or -1.
func (f *FakeService) LastPageRequest() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.PageRequests) == 0 {
		return -1
	}
	return f.PageRequests[len(f.PageRequests)-1]
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, r service.Registration) (service.AuthResult, error) {
	if f.RegisterErr != nil {
		return service.AuthResult{}, f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[r.Email]; exists {
		return service.AuthResult{}, service.StatusError(400, "Email already exists", nil)
	}
	token := "token-" + strings.ToLower(r.Email)
	f.users[r.Email] = fakeAccount{name: r.Name, password: r.Password, token: token}
	return service.AuthResult{Token: token, Name: r.Name}, nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, c service.Credentials) (service.AuthResult, error) {
	if f.LoginErr != nil {
		return service.AuthResult{}, f.LoginErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.users[c.Email]
	if !ok || u.password != c.Password {
		return service.AuthResult{}, service.StatusError(400, "Invalid email or password", nil)
	}
	return service.AuthResult{Token: u.token, Name: u.name}, nil
}

// ListTasksPaginated implements service.Service.
func (f *FakeService) ListTasksPaginated(ctx context.Context, page, size int) (service.Page, error) {
	f.mu.Lock()
	f.PageRequests = append(f.PageRequests, page)
	hook := f.BeforeList
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, page)
	}
	if f.ListErr != nil {
		return service.Page{}, f.ListErr
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	all := f.newestFirst()

	p := service.Page{
		Content:       []service.Task{},
		PageNumber:    page,
		PageSize:      size,
		TotalPages:    (len(all) + size - 1) / size,
		TotalElements: int64(len(all)),
	}
	for i := page * size; i < len(all) && i < (page+1)*size; i++ {
		p.Content = append(p.Content, all[i])
	}
	return p, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	if f.ListAllErr != nil {
		return nil, f.ListAllErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, t service.NewTask) (service.Task, error) {
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	return f.add(t), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id int64, patch service.TaskPatch) (service.Task, error) {
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.tasks[i].Title = *patch.Title
		}
		if patch.Description != nil {
			f.tasks[i].Description = *patch.Description
		}
		if patch.Status != nil {
			f.tasks[i].Status = *patch.Status
		}
		return f.tasks[i], nil
	}
	return service.Task{}, service.StatusError(400, "Task not found", nil)
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return service.StatusError(400, "Task not found", nil)
}

// add stores t one clock tick after the last task. Caller holds f.mu.
func (f *FakeService) add(t service.NewTask) service.Task {
	f.clock = f.clock.Add(time.Second)
	task := service.Task{
		ID:          f.nextID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   service.Timestamp{Time: f.clock},
	}
	f.nextID++
	f.tasks = append(f.tasks, task)
	return task
}

// newestFirst returns a reversed copy of f.tasks. Caller holds f.mu.
func (f *FakeService) newestFirst() []service.Task {
	out := make([]service.Task, len(f.tasks))
	for i, t := range f.tasks {
		out[len(f.tasks)-1-i] = t
	}
	return out
}
