// Created by Yanjunhui

package nestedset

import (
	"sync"
	"weak"

	"github.com/google/uuid"
)

// Registry 某张表当前在内存中的全部节点实例（按实例地址，而不是主键）
// EN: Registry tracks every node instance of one table currently materialized in
// memory, keyed by the instance's address rather than its primary key: the same row
// may be loaded several times as distinct instances, and a value copy of an entity
// is an instance of its own. It is advisory only; storage stays authoritative.
//
// Entries are weak: an instance the caller no longer references is dropped after
// the next garbage collection. Forget, the corrector flagging a node deleted, Clear
// and Session.Close remove entries explicitly.
type Registry struct {
	table string
	mu    sync.Mutex
	nodes map[weak.Pointer[Node]]struct{}
}

// NewRegistry 创建一个独立的注册表
// EN: NewRegistry creates a standalone registry, mostly for tests.
func NewRegistry(table string) *Registry {
	return &Registry{
		table: table,
		nodes: make(map[weak.Pointer[Node]]struct{}),
	}
}

// Table 返回所属表名
// EN: Table returns the table this registry serves.
func (r *Registry) Table() string {
	return r.table
}

// Register 登记节点实例（幂等）
// EN: Register adds a node instance; registering twice is a no-op.
func (r *Registry) Register(n *Node) {
	if n == nil {
		return
	}
	r.mu.Lock()
	r.nodes[weak.Make(n)] = struct{}{}
	r.mu.Unlock()
}

// Forget 显式注销节点实例
// EN: Forget deregisters a node instance, e.g. when its owner disposes of it.
func (r *Registry) Forget(n *Node) {
	if n == nil {
		return
	}
	r.mu.Lock()
	delete(r.nodes, weak.Make(n))
	r.mu.Unlock()
}

// Len 当前仍可达的登记实例数
// EN: Len returns the number of registered instances still reachable.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	return len(r.nodes)
}

// Contains 是否已登记
// EN: Contains reports whether the instance is registered.
func (r *Registry) Contains(n *Node) bool {
	if n == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.nodes[weak.Make(n)]
	return ok
}

// live 返回可被校正的实例快照（跳过新建与已删除的节点）
// EN: live snapshots the instances the corrector may touch: persisted, not deleted.
func (r *Registry) live() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Node, 0, len(r.nodes))
	for wp := range r.nodes {
		n := wp.Value()
		if n == nil {
			delete(r.nodes, wp)
			continue
		}
		if n.state == statePersisted {
			out = append(out, n)
		}
	}
	return out
}

// pruneLocked 删除已被回收的实例
func (r *Registry) pruneLocked() {
	for wp := range r.nodes {
		if wp.Value() == nil {
			delete(r.nodes, wp)
		}
	}
}

// Clear 注销全部实例
// EN: Clear drops every registered instance.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.nodes = make(map[weak.Pointer[Node]]struct{})
	r.mu.Unlock()
}

// Session 工作单元：每张表一个注册表，生命周期由调用方显式控制
// EN: Session is a unit of work owning one Registry per table. Trees opened from
// the same session on the same table share a registry, so a mutation through one
// handle keeps the nodes loaded through another handle consistent.
type Session struct {
	id         uuid.UUID
	mu         sync.Mutex
	registries map[string]*Registry
	closed     bool
}

// NewSession 创建会话
// EN: NewSession creates an empty session.
func NewSession() *Session {
	return &Session{id: uuid.New(), registries: make(map[string]*Registry)}
}

// ID 会话标识，出现在该会话内每条变更日志中
// EN: ID identifies the session in the mutation log of every tree opened from it.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Registry 获取（必要时创建）表的注册表
// EN: Registry returns the table's registry, creating it on first use.
func (s *Session) Registry(table string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registries[table]
	if !ok {
		r = NewRegistry(table)
		s.registries[table] = r
	}
	return r
}

// Tree 在会话内打开一棵树
// EN: Tree opens a tree handle bound to this session's registry for the table.
func (s *Session) Tree(store Store, table string, opts ...Option) (*Tree, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errInvalidOperation("session is closed")
	}
	opts = append(opts, WithRegistry(s.Registry(table)), withSession(s.id))
	return New(store, table, opts...)
}

// Close 结束会话并释放所有注册表
// EN: Close ends the session and releases every registry.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registries {
		r.Clear()
	}
	s.registries = make(map[string]*Registry)
	s.closed = true
}
