package nodestore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"canvasboard/internal/domain"
)

// DefaultSweepInterval is how often Run checks the debounce schedule.
const DefaultSweepInterval = 50 * time.Millisecond

// Store is the authoritative in-memory node set of one board. Local
// mutations are applied synchronously; persistence happens on background
// goroutines and never rolls local state back.
type Store struct {
	mu       sync.Mutex
	client   Client
	boardID  string
	nodes    map[string]*domain.Node
	order    []string
	err      string
	loading  bool
	revision uint64

	debouncer *Debouncer

	writesMu sync.Mutex
	writes   int
	idle     chan struct{} // closed when writes drops to zero; nil while idle

	subsMu sync.Mutex
	subs   map[int]func()
	nextID int

	onDelete      func(id string)
	onBoardSwitch func(boardID string)
}

// New creates a Store persisting through client. now drives the debounce
// schedule and defaults to time.Now.
func New(client Client, now func() time.Time) *Store {
	s := &Store{
		client: client,
		nodes:  make(map[string]*domain.Node),
		subs:   make(map[int]func()),
	}
	s.debouncer = NewDebouncer(now, s.fireDebounced)
	return s
}

// OnDelete registers the hook run after a node is removed locally.
func (s *Store) OnDelete(fn func(id string)) {
	s.mu.Lock()
	s.onDelete = fn
	s.mu.Unlock()
}

// OnBoardSwitch registers the hook run when Fetch loads a different board.
func (s *Store) OnBoardSwitch(fn func(boardID string)) {
	s.mu.Lock()
	s.onBoardSwitch = fn
	s.mu.Unlock()
}

// Subscribe registers fn to run after every change to the node set, error
// or loading state. The returned func unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subsMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Run drives the debounce sweep until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s.debouncer.Run(ctx, interval)
}

// Sweep fires the debounced writes due at now.
func (s *Store) Sweep(now time.Time) int {
	return s.debouncer.Sweep(now)
}

// Fetch replaces the node set with the nodes of boardID. On failure the
// previous set is kept and the error is recorded.
func (s *Store) Fetch(ctx context.Context, boardID string) error {
	s.mu.Lock()
	switching := s.boardID != "" && s.boardID != boardID
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	s.notify()

	if switching {
		s.debouncer.FlushAll()
	}

	nodes, err := s.client.ListNodes(ctx, boardID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = fmt.Sprintf("fetch nodes: %v", err)
		s.mu.Unlock()
		log.Printf("[STORE] fetch board %s failed: %v", boardID, err)
		s.notify()
		return fmt.Errorf("fetch nodes: %w", err)
	}
	s.nodes = make(map[string]*domain.Node, len(nodes))
	s.order = s.order[:0]
	for i := range nodes {
		n := nodes[i].Clone()
		n.Size = n.Size.Clamp()
		if _, dup := s.nodes[n.ID]; !dup {
			s.order = append(s.order, n.ID)
		}
		s.nodes[n.ID] = &n
	}
	s.boardID = boardID
	s.revision++
	hook := s.onBoardSwitch
	s.mu.Unlock()

	if switching && hook != nil {
		hook(boardID)
	}
	s.notify()
	return nil
}

// Create persists spec and appends the node the server returns. Nothing
// is added locally until the server has assigned an id, and a node created
// on a board other than the loaded one is returned but not added.
func (s *Store) Create(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	if spec.BoardID == "" {
		s.mu.Lock()
		spec.BoardID = s.boardID
		s.mu.Unlock()
	}

	created, err := s.client.CreateNode(ctx, spec)
	if err != nil {
		s.setError(fmt.Sprintf("create node: %v", err))
		return nil, fmt.Errorf("create node: %w", err)
	}

	n := created.Clone()
	n.Size = n.Size.Clamp()
	out := n.Clone()
	s.mu.Lock()
	if s.boardID != "" && n.BoardID != s.boardID {
		s.mu.Unlock()
		log.Printf("[STORE] created node %s belongs to board %s, not %s", n.ID, n.BoardID, s.boardID)
		return &out, nil
	}
	if _, ok := s.nodes[n.ID]; !ok {
		s.order = append(s.order, n.ID)
	}
	s.nodes[n.ID] = &n
	s.revision++
	s.mu.Unlock()
	s.notify()

	return &out, nil
}

// UpdateLocal merges patch into the node without persisting it. Unknown
// ids and patches with invalid content are ignored.
func (s *Store) UpdateLocal(id string, patch domain.NodePatch) bool {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	next := n.Clone()
	if err := patch.Apply(&next); err != nil {
		s.mu.Unlock()
		log.Printf("[STORE] local update %s rejected: %v", id, err)
		return false
	}
	*n = next
	s.revision++
	s.mu.Unlock()

	s.notify()
	return true
}

// Update applies patch locally and persists it immediately in the
// background. Pending debounced writes for the same field groups are
// folded into this write.
func (s *Store) Update(ctx context.Context, id string, patch domain.NodePatch) {
	if !s.UpdateLocal(id, patch) {
		return
	}
	payload := domain.NodePatch{}
	for _, g := range groupsOf(patch) {
		if pending, ok := s.debouncer.Take(Key{NodeID: id, Group: g}); ok {
			payload = payload.Merge(pending)
		}
	}
	s.persist(context.WithoutCancel(ctx), id, payload.Merge(patch))
}

// UpdateDebounced applies patch locally now and schedules its write under
// (id, group). Repeated calls within delay collapse into one write.
func (s *Store) UpdateDebounced(id string, group FieldGroup, patch domain.NodePatch, delay time.Duration) {
	if !s.UpdateLocal(id, patch) {
		return
	}
	s.debouncer.Schedule(Key{NodeID: id, Group: group}, patch, delay)
}

// Delete removes the node remotely, then locally.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteNode(ctx, id); err != nil {
		s.setError(fmt.Sprintf("delete node: %v", err))
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	s.debouncer.Drop(id)

	s.mu.Lock()
	_, existed := s.nodes[id]
	delete(s.nodes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.revision++
	hook := s.onDelete
	s.mu.Unlock()

	if existed && hook != nil {
		hook(id)
	}
	s.notify()
	return nil
}

// BulkUpdate sends every patch in one call and merges them locally once
// the server has accepted them.
func (s *Store) BulkUpdate(ctx context.Context, updates []domain.NodeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.client.BulkUpdate(ctx, updates); err != nil {
		s.setError(fmt.Sprintf("bulk update: %v", err))
		return fmt.Errorf("bulk update: %w", err)
	}

	s.mu.Lock()
	for _, u := range updates {
		n, ok := s.nodes[u.ID]
		if !ok {
			continue
		}
		next := n.Clone()
		if err := u.NodePatch.Apply(&next); err != nil {
			log.Printf("[STORE] bulk patch %s rejected locally: %v", u.ID, err)
			continue
		}
		*n = next
	}
	s.revision++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Flush fires every pending debounced write and waits for the writes in
// flight to finish or ctx to end. Writes started while Flush waits extend
// the wait.
func (s *Store) Flush(ctx context.Context) error {
	s.debouncer.FlushAll()
	select {
	case <-s.idleChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until no write is in flight.
func (s *Store) Wait() {
	<-s.idleChan()
}

// Pending returns the number of scheduled debounced writes.
func (s *Store) Pending() int {
	return s.debouncer.Pending()
}

// Busy reports whether any write is scheduled or in flight.
func (s *Store) Busy() bool {
	s.writesMu.Lock()
	n := s.writes
	s.writesMu.Unlock()
	return n > 0 || s.debouncer.Pending() > 0
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func (s *Store) idleChan() <-chan struct{} {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	if s.idle == nil {
		return closedChan
	}
	return s.idle
}

func (s *Store) beginWrite() {
	s.writesMu.Lock()
	if s.writes == 0 {
		s.idle = make(chan struct{})
	}
	s.writes++
	s.writesMu.Unlock()
}

func (s *Store) endWrite() {
	s.writesMu.Lock()
	s.writes--
	if s.writes == 0 {
		close(s.idle)
		s.idle = nil
	}
	s.writesMu.Unlock()
}

func (s *Store) fireDebounced(k Key, patch domain.NodePatch) {
	s.persist(context.Background(), k.NodeID, patch)
}

func (s *Store) persist(ctx context.Context, id string, patch domain.NodePatch) {
	if patch.IsEmpty() {
		return
	}
	s.beginWrite()
	go func() {
		defer s.endWrite()

		saved, err := s.client.UpdateNode(ctx, id, patch)
		if err != nil {
			log.Printf("[STORE] persist %s failed: %v", id, err)
			s.setError(fmt.Sprintf("update node: %v", err))
			return
		}
		if saved == nil {
			return
		}
		// Only the server timestamp is adopted; geometry and content may
		// already have moved on locally.
		s.mu.Lock()
		if n, ok := s.nodes[id]; ok && saved.UpdatedAt.After(n.UpdatedAt) {
			n.UpdatedAt = saved.UpdatedAt
		}
		s.mu.Unlock()
	}()
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	s.notify()
}

// Nodes returns a copy of the node set in insertion order.
func (s *Store) Nodes() []domain.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Get returns a copy of the node with id.
func (s *Store) Get(id string) (domain.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return n.Clone(), true
}

// MaxZIndex returns the highest z-index on the board, or 0 when empty.
func (s *Store) MaxZIndex() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, n := range s.nodes {
		if n.Position.ZIndex > max {
			max = n.Position.ZIndex
		}
	}
	return max
}

func (s *Store) BoardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardID
}

// Err returns the last surfaced error message, or "".
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Revision increases on every local change to the node set.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func groupsOf(p domain.NodePatch) []FieldGroup {
	var gs []FieldGroup
	if p.Position != nil || p.Size != nil {
		gs = append(gs, GroupGeometry)
	}
	if len(p.Content) > 0 {
		gs = append(gs, GroupContent)
	}
	if p.Style != nil {
		gs = append(gs, GroupStyle)
	}
	if p.Locked != nil || p.Type != nil || p.Connections != nil {
		gs = append(gs, GroupMeta)
	}
	return gs
}
