package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// FakeServer is an in-process implementation of the task backend's REST API,
// mounted under /api. Tasks are listed newest first.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	users    map[string]*fakeUser // email -> user
	tasks    []*fakeTask
	nextID   int64
	clock    time.Time
	requests []Request
	failNext []fakeFailure
}

// Request is a request the fake server received.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	name string
	hash []byte
}

type fakeTask struct {
	id          int64
	owner       string
	title       string
	description string
	status      string
	createdAt   time.Time
}

type fakeFailure struct {
	status  int
	message string
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type taskJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
}

type pageJSON struct {
	Content       []taskJSON `json:"content"`
	TotalPages    int        `json:"totalPages"`
	TotalElements int        `json:"totalElements"`
	Number        int        `json:"number"`
	Size          int        `json:"size"`
}

// NewFakeServer starts a FakeServer that is closed when t finishes.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &FakeServer{
		secret: []byte(uuid.NewString()),
		users:  make(map[string]*fakeUser),
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	r := gin.New()
	r.Use(s.record, s.injectFailure)

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	tasks := api.Group("/tasks", s.authenticate)
	tasks.GET("", s.listTasks)
	tasks.GET("/paginated", s.listTasksPaginated)
	tasks.POST("", s.createTask)
	tasks.PUT("/:id", s.updateTask)
	tasks.DELETE("/:id", s.deleteTask)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API base address clients should use.
func (s *FakeServer) BaseURL() string {
	return s.URL + "/api"
}

// AddUser registers a user directly and returns a valid token for it.
func (s *FakeServer) AddUser(name, email, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = &fakeUser{name: name, hash: hash}
	token, err := s.issueToken(email)
	if err != nil {
		panic(err)
	}
	return token
}

// AddTask stores a task for the user with email and returns its id.
func (s *FakeServer) AddTask(email, title, status string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTask(email, title, "", status).id
}

// RevokeTokens invalidates every token issued so far.
func (s *FakeServer) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = []byte(uuid.NewString())
}

// FailNext makes the next request fail with status and a message payload.
func (s *FakeServer) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, fakeFailure{status: status, message: message})
}

// Requests returns the requests received so far.
func (s *FakeServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *FakeServer) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
		RequestID:     c.GetHeader("X-Request-ID"),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *FakeServer) injectFailure(c *gin.Context) {
	s.mu.Lock()
	var f *fakeFailure
	if len(s.failNext) > 0 {
		f = &s.failNext[0]
		s.failNext = s.failNext[1:]
	}
	s.mu.Unlock()

	if f != nil {
		c.AbortWithStatusJSON(f.status, apiResponse{Success: false, Message: f.message})
		return
	}
	c.Next()
}

func (s *FakeServer) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	s.mu.Lock()
	_, ok := s.users[claims.Subject]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.Set("email", claims.Subject)
	c.Next()
}

func (s *FakeServer) issueToken(email string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  email,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *FakeServer) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Invalid request"})
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Name, email and a password of at least 6 characters are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Email already exists"})
		return
	}
	s.users[req.Email] = &fakeUser{name: req.Name, hash: hash}
	token, err := s.issueToken(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "name": req.Name})
}

func (s *FakeServer) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[req.Email]
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Invalid email or password"})
		return
	}
	token, err := s.issueToken(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "name": u.name})
}

// owned returns the user's tasks newest first. Caller holds s.mu.
func (s *FakeServer) owned(email string) []*fakeTask {
	var out []*fakeTask
	for _, t := range s.tasks {
		if t.owner == email {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].id > out[j].id
	})
	return out
}

func (s *FakeServer) listTasks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []taskJSON{}
	for _, t := range s.owned(c.GetString("email")) {
		out = append(out, t.json())
	}
	c.JSON(http.StatusOK, out)
}

func (s *FakeServer) listTasksPaginated(c *gin.Context) {
	page, err1 := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, err2 := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err1 != nil || err2 != nil || page < 0 || size < 1 {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Invalid page request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.owned(c.GetString("email"))

	resp := pageJSON{
		Content:       []taskJSON{},
		TotalPages:    (len(all) + size - 1) / size,
		TotalElements: len(all),
		Number:        page,
		Size:          size,
	}
	for i := page * size; i < len(all) && i < (page+1)*size; i++ {
		resp.Content = append(resp.Content, all[i].json())
	}
	c.JSON(http.StatusOK, resp)
}

func (s *FakeServer) createTask(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Title is required"})
		return
	}
	if req.Status == "" {
		req.Status = "PENDING"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.addTask(c.GetString("email"), req.Title, req.Description, req.Status)
	c.JSON(http.StatusOK, t.json())
}

// addTask appends a task one clock tick newer than the last. Caller holds s.mu.
func (s *FakeServer) addTask(email, title, description, status string) *fakeTask {
	s.clock = s.clock.Add(time.Second)
	t := &fakeTask{
		id:          s.nextID,
		owner:       email,
		title:       title,
		description: description,
		status:      status,
		createdAt:   s.clock,
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t
}

// find returns the task with the id in the path owned by the caller. Caller holds s.mu.
func (s *FakeServer) find(c *gin.Context) (int, *fakeTask) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return -1, nil
	}
	for i, t := range s.tasks {
		if t.id == id && t.owner == c.GetString("email") {
			return i, t
		}
	}
	return -1, nil
}

func (s *FakeServer) updateTask(c *gin.Context) {
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, t := s.find(c)
	if t == nil {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Task not found"})
		return
	}
	if req.Title != nil {
		t.title = *req.Title
	}
	if req.Description != nil {
		t.description = *req.Description
	}
	if req.Status != nil {
		t.status = *req.Status
	}
	c.JSON(http.StatusOK, t.json())
}

func (s *FakeServer) deleteTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, t := s.find(c)
	if t == nil {
		c.JSON(http.StatusBadRequest, apiResponse{Message: "Task not found"})
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	c.JSON(http.StatusOK, apiResponse{Success: true, Message: "Task deleted successfully"})
}

func (t *fakeTask) json() taskJSON {
	out := taskJSON{
		ID:        t.id,
		Title:     t.title,
		Status:    t.status,
		CreatedAt: t.createdAt.Format("2006-01-02T15:04:05"),
	}
	if t.description != "" {
		d := t.description
		out.Description = &d
	}
	return out
}
