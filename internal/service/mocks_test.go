package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/fun"
	"github.com/Strob0t/nextup/internal/domain/note"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/domain/user"
	"github.com/Strob0t/nextup/internal/middleware"
	"github.com/Strob0t/nextup/internal/port/database"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store. Owner scoping and the order
// uniqueness indexes behave like the postgres adapter.
type mockStore struct {
	mu sync.Mutex

	users         []user.User
	refreshTokens []user.RefreshToken
	revoked       map[string]time.Time
	todos         []todo.Todo
	habitLogs     []todo.HabitLog
	funs          []fun.Fun
	notes         []note.Note

	// error hooks
	revokedErr      error
	createTodoErr   []error // popped one per CreateTodo/CreateTodos call
	updateTodoErr   error
	createTodoCalls int
}

var _ database.Store = (*mockStore)(nil)

func owner(ctx context.Context) string {
	if u := middleware.UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

func userCtx(id string) context.Context {
	return middleware.ContextWithUser(context.Background(), &user.User{ID: id, Email: id + "@example.com", Enabled: true})
}

// --- Users ---

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if strings.EqualFold(m.users[i].Email, u.Email) {
			return domain.ErrConflict
		}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if strings.EqualFold(m.users[i].Email, email) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]user.User(nil), m.users...), nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i].Name = u.Name
			m.users[i].Enabled = u.Enabled
			m.users[i].PasswordHash = u.PasswordHash
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Tokens ---

func (m *mockStore) CreateRefreshToken(_ context.Context, rt *user.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens = append(m.refreshTokens, *rt)
	return nil
}

func (m *mockStore) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*user.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == tokenHash {
			rt := m.refreshTokens[i]
			return &rt, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) RotateRefreshToken(_ context.Context, oldTokenHash string, newRT *user.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.refreshTokens {
		if m.refreshTokens[i].TokenHash == oldTokenHash {
			m.refreshTokens[i] = *newRT
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteRefreshTokensByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.refreshTokens[:0]
	for _, rt := range m.refreshTokens {
		if rt.UserID != userID {
			kept = append(kept, rt)
		}
	}
	m.refreshTokens = kept
	return nil
}

func (m *mockStore) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = make(map[string]time.Time)
	}
	m.revoked[jti] = expiresAt
	return nil
}

func (m *mockStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokedErr != nil {
		return false, m.revokedErr
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *mockStore) PurgeExpiredTokens(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for jti, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, jti)
			n++
		}
	}
	return n, nil
}

// --- Todos ---

func (m *mockStore) ListTodos(ctx context.Context, kinds ...todo.Kind) ([]todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid := owner(ctx)
	var out []todo.Todo
	for _, t := range m.todos {
		if t.UserID != uid {
			continue
		}
		if len(kinds) > 0 && !todo.OfKind(kinds...)(&t) {
			continue
		}
		out = append(out, t)
	}
	todo.SortByOrder(out)
	return out, nil
}

func (m *mockStore) GetTodo(ctx context.Context, id string) (*todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.todoIndex(ctx, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	t := m.todos[i]
	return &t, nil
}

func (m *mockStore) todoIndex(ctx context.Context, id string) int {
	uid := owner(ctx)
	for i := range m.todos {
		if m.todos[i].ID == id && m.todos[i].UserID == uid {
			return i
		}
	}
	return -1
}

func (m *mockStore) orderTaken(t *todo.Todo) bool {
	part := t.Kind.Partition()
	for i := range m.todos {
		o := &m.todos[i]
		if o.ID != t.ID && o.UserID == t.UserID && o.Order == t.Order && todo.OfKind(part...)(o) {
			return true
		}
	}
	return false
}

func (m *mockStore) popCreateErr() error {
	m.createTodoCalls++
	if len(m.createTodoErr) == 0 {
		return nil
	}
	err := m.createTodoErr[0]
	m.createTodoErr = m.createTodoErr[1:]
	return err
}

func (m *mockStore) insertTodo(ctx context.Context, t *todo.Todo) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.UserID = owner(ctx)
	if m.orderTaken(t) {
		return domain.ErrOrderConflict
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	m.todos = append(m.todos, *t)
	return nil
}

func (m *mockStore) CreateTodo(ctx context.Context, t *todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popCreateErr(); err != nil {
		return err
	}
	return m.insertTodo(ctx, t)
}

func (m *mockStore) CreateTodos(ctx context.Context, todos []todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.popCreateErr(); err != nil {
		return err
	}
	snapshot := append([]todo.Todo(nil), m.todos...)
	for i := range todos {
		if err := m.insertTodo(ctx, &todos[i]); err != nil {
			m.todos = snapshot
			return err
		}
	}
	return nil
}

func (m *mockStore) UpdateTodo(ctx context.Context, t *todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateTodoErr != nil {
		return m.updateTodoErr
	}
	i := m.todoIndex(ctx, t.ID)
	if i < 0 {
		return domain.ErrNotFound
	}
	t.UserID = m.todos[i].UserID
	t.Kind = m.todos[i].Kind
	t.ParentID = m.todos[i].ParentID
	if m.orderTaken(t) {
		return domain.ErrOrderConflict
	}
	t.UpdatedAt = time.Now()
	m.todos[i] = *t
	return nil
}

func (m *mockStore) DeleteTodo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.todoIndex(ctx, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.todos = append(m.todos[:i], m.todos[i+1:]...)
	// ON DELETE CASCADE
	kept := m.todos[:0]
	for _, t := range m.todos {
		if t.ParentID != id {
			kept = append(kept, t)
		}
	}
	m.todos = kept
	return nil
}

// --- Habit logs ---

func (m *mockStore) ListHabitLogs(ctx context.Context, from, to time.Time) ([]todo.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []todo.HabitLog
	for _, l := range m.habitLogs {
		if m.todoIndex(ctx, l.HabitID) < 0 {
			continue
		}
		if l.When.Before(from) || !l.When.Before(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockStore) CreateHabitLog(ctx context.Context, l *todo.HabitLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.todoIndex(ctx, l.HabitID)
	if i < 0 || m.todos[i].Kind != todo.KindHabit {
		return domain.ErrNotFound
	}
	for _, existing := range m.habitLogs {
		if existing.HabitID == l.HabitID && existing.When.Equal(l.When) {
			l.ID = existing.ID
			l.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	m.habitLogs = append(m.habitLogs, *l)
	return nil
}

func (m *mockStore) DeleteHabitLog(ctx context.Context, habitID string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.todoIndex(ctx, habitID) < 0 {
		return domain.ErrNotFound
	}
	for i, l := range m.habitLogs {
		if l.HabitID == habitID && l.When.Equal(when) {
			m.habitLogs = append(m.habitLogs[:i], m.habitLogs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Funs ---

func (m *mockStore) ListFuns(ctx context.Context) ([]fun.Fun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid := owner(ctx)
	var out []fun.Fun
	for _, f := range m.funs {
		if f.UserID == uid {
			out = append(out, f)
		}
	}
	sortFuns(out)
	return out, nil
}

func (m *mockStore) funIndex(ctx context.Context, id string) int {
	uid := owner(ctx)
	for i := range m.funs {
		if m.funs[i].ID == id && m.funs[i].UserID == uid {
			return i
		}
	}
	return -1
}

func (m *mockStore) funOrderTaken(f *fun.Fun) bool {
	for _, o := range m.funs {
		if o.ID != f.ID && o.UserID == f.UserID && o.Order == f.Order {
			return true
		}
	}
	return false
}

func (m *mockStore) GetFun(ctx context.Context, id string) (*fun.Fun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.funIndex(ctx, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	f := m.funs[i]
	return &f, nil
}

func (m *mockStore) CreateFun(ctx context.Context, f *fun.Fun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.UserID = owner(ctx)
	if m.funOrderTaken(f) {
		return domain.ErrOrderConflict
	}
	m.funs = append(m.funs, *f)
	return nil
}

func (m *mockStore) UpdateFun(ctx context.Context, f *fun.Fun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.funIndex(ctx, f.ID)
	if i < 0 {
		return domain.ErrNotFound
	}
	f.UserID = m.funs[i].UserID
	if m.funOrderTaken(f) {
		return domain.ErrOrderConflict
	}
	m.funs[i] = *f
	return nil
}

func (m *mockStore) DeleteFun(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.funIndex(ctx, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.funs = append(m.funs[:i], m.funs[i+1:]...)
	return nil
}

// --- Notes ---

func (m *mockStore) ListNotes(ctx context.Context) ([]note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid := owner(ctx)
	var out []note.Note
	for _, n := range m.notes {
		if n.UserID == uid {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockStore) noteIndex(ctx context.Context, id string) int {
	uid := owner(ctx)
	for i := range m.notes {
		if m.notes[i].ID == id && m.notes[i].UserID == uid {
			return i
		}
	}
	return -1
}

func (m *mockStore) GetNote(ctx context.Context, id string) (*note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.noteIndex(ctx, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	n := m.notes[i]
	return &n, nil
}

func (m *mockStore) CreateNote(ctx context.Context, n *note.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.UserID = owner(ctx)
	m.notes = append(m.notes, *n)
	return nil
}

func (m *mockStore) UpdateNote(ctx context.Context, n *note.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.noteIndex(ctx, n.ID)
	if i < 0 {
		return domain.ErrNotFound
	}
	n.UserID = m.notes[i].UserID
	m.notes[i] = *n
	return nil
}

func (m *mockStore) DeleteNote(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.noteIndex(ctx, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.notes = append(m.notes[:i], m.notes[i+1:]...)
	return nil
}

func sortFuns(funs []fun.Fun) {
	slices.SortStableFunc(funs, func(a, b fun.Fun) int { return strings.Compare(a.Order, b.Order) })
}

// --- Queue ---

type published struct {
	subject string
	data    []byte
}

type mockQueue struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	handlers   map[string]messagequeue.Handler
}

var _ messagequeue.Queue = (*mockQueue)(nil)

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, published{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = make(map[string]messagequeue.Handler)
	}
	q.handlers[subject] = handler
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.published))
	for i, p := range q.published {
		out[i] = p.subject
	}
	return out
}

// --- Broadcaster ---

type sent struct {
	userID    string
	eventType string
	payload   any
}

type mockBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (b *mockBroadcaster) SendToUser(_ context.Context, userID, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{userID: userID, eventType: eventType, payload: payload})
}

var errBoom = errors.New("boom")
