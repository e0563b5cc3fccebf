package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alimasry/lumina/ot"
)

// dirtyState tracks what needs flushing for a single document.
type dirtyState struct {
	created      bool   // created locally, not yet in the backing store
	initial      string // content the document was created with
	contentDirty bool
	titleDirty   bool
	flushedOps   int  // ops already in the backing store
	deleted      bool // must be removed from the backing store

	epoch       uint64 // bumped on every write
	incarnation uint64 // bumped on create and delete
}

func (ds *dirtyState) clean(totalOps int) bool {
	return !ds.created && !ds.contentDirty && !ds.titleDirty && !ds.deleted && ds.flushedOps >= totalOps
}

// CachedStore wraps a backing DocumentStore with an in-memory cache.
// All reads and writes are served from the cache. Dirty documents are
// flushed to the backing store periodically in the background.
type CachedStore struct {
	cache         *MemoryStore
	backing       DocumentStore
	logger        *zap.Logger
	mu            sync.Mutex
	dirty         map[string]*dirtyState
	epoch         uint64
	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// NewCachedStore creates a CachedStore that caches in memory and flushes
// dirty documents to the backing store every flushInterval.
func NewCachedStore(backing DocumentStore, flushInterval time.Duration, logger *zap.Logger) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		logger:        logger.Named("cache"),
		dirty:         make(map[string]*dirtyState),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Create(ctx context.Context, id, title, content string) error {
	if !cs.pendingDelete(id) {
		if _, err := cs.backing.Get(ctx, id); err == nil {
			return fmt.Errorf("document %q: %w", id, ErrExists)
		}
	}
	if err := cs.cache.Create(ctx, id, title, content); err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	prev := cs.dirty[id]
	cs.epoch++
	cs.dirty[id] = &dirtyState{
		created:      true,
		initial:      content,
		contentDirty: true,
		deleted:      prev != nil && prev.deleted,
		epoch:        cs.epoch,
		incarnation:  cs.epoch,
	}
	return nil
}

func (cs *CachedStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	info, err := cs.cache.Get(ctx, id)
	if err == nil {
		return info, nil
	}
	if cs.pendingDelete(id) {
		return nil, err
	}
	if err := cs.loadFromBacking(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.Get(ctx, id)
}

// List merges cached documents over the backing store's listing. Cached
// entries are newer and documents awaiting deletion are hidden.
func (cs *CachedStore) List(ctx context.Context) ([]DocumentInfo, error) {
	backed, err := cs.backing.List(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := cs.cache.List(ctx)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	seen := make(map[string]bool, len(cached))
	result := make([]DocumentInfo, 0, len(backed)+len(cached))
	for _, info := range cached {
		seen[info.ID] = true
		result = append(result, info)
	}
	for _, info := range backed {
		if seen[info.ID] {
			continue
		}
		if ds := cs.dirty[info.ID]; ds != nil && ds.deleted {
			continue
		}
		result = append(result, info)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (cs *CachedStore) Rename(ctx context.Context, id, title string) error {
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}
	if err := cs.cache.Rename(ctx, id, title); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.touch(id).titleDirty = true
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}
	if err := cs.cache.UpdateContent(ctx, id, content, version); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.touch(id).contentDirty = true
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) AppendOperation(ctx context.Context, id string, op ot.Operation, version int) error {
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}

	// A clean document was dropped from the dirty map; everything it held
	// before this append is already flushed.
	cs.mu.Lock()
	cs.touch(id)
	cs.mu.Unlock()

	return cs.cache.AppendOperation(ctx, id, op, version)
}

func (cs *CachedStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]ot.Operation, error) {
	if _, err := cs.Get(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.GetOperations(ctx, id, fromVersion)
}

func (cs *CachedStore) Delete(ctx context.Context, id string) error {
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}
	if err := cs.cache.Delete(ctx, id); err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	ds := cs.dirty[id]
	if ds != nil && ds.created && !ds.deleted {
		// Never reached the backing store.
		delete(cs.dirty, id)
		return nil
	}
	cs.epoch++
	cs.dirty[id] = &dirtyState{deleted: true, epoch: cs.epoch, incarnation: cs.epoch}
	return nil
}

// touch returns the dirty state for id with its epoch bumped. A document
// that had no dirty state counts its cached history as flushed. Callers
// hold cs.mu.
func (cs *CachedStore) touch(id string) *dirtyState {
	cs.epoch++
	ds := cs.dirty[id]
	if ds == nil {
		ds = &dirtyState{flushedOps: cs.historyLen(id), incarnation: cs.epoch}
		cs.dirty[id] = ds
	}
	ds.epoch = cs.epoch
	return ds
}

func (cs *CachedStore) historyLen(id string) int {
	cs.cache.mu.RLock()
	defer cs.cache.mu.RUnlock()
	if rec, ok := cs.cache.docs[id]; ok {
		return len(rec.history)
	}
	return 0
}

func (cs *CachedStore) pendingDelete(id string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	ds := cs.dirty[id]
	return ds != nil && ds.deleted
}

// loadFromBacking loads a document and its operations from the backing store
// into the cache.
func (cs *CachedStore) loadFromBacking(ctx context.Context, id string) error {
	info, err := cs.backing.Get(ctx, id)
	if err != nil {
		return err
	}
	ops, err := cs.backing.GetOperations(ctx, id, 0)
	if err != nil {
		return err
	}
	cs.cache.load(*info, ops)
	return nil
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			cs.flush()
		case <-cs.stop:
			cs.flush()
			return
		}
	}
}

// flush writes all dirty documents to the backing store.
func (cs *CachedStore) flush() {
	cs.mu.Lock()
	snapshot := make(map[string]*dirtyState, len(cs.dirty))
	for id, ds := range cs.dirty {
		cp := *ds
		snapshot[id] = &cp
	}
	cs.mu.Unlock()

	ctx := context.Background()
	for id, ds := range snapshot {
		cs.flushOne(ctx, id, ds)
	}
}

func (cs *CachedStore) flushOne(ctx context.Context, id string, ds *dirtyState) {
	log := cs.logger.With(zap.String("doc", id))
	snap := *ds

	if ds.deleted {
		if err := cs.backing.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn("delete failed", zap.Error(err))
			return
		}
		ds.deleted = false
	}

	cs.cache.mu.RLock()
	rec, ok := cs.cache.docs[id]
	if !ok {
		cs.cache.mu.RUnlock()
		cs.settle(id, snap, ds)
		return
	}
	info := rec.info
	totalOps := len(rec.history)
	var newOps []ot.Operation
	if ds.flushedOps < totalOps {
		newOps = make([]ot.Operation, totalOps-ds.flushedOps)
		copy(newOps, rec.history[ds.flushedOps:])
	}
	cs.cache.mu.RUnlock()

	if ds.created {
		if err := cs.backing.Create(ctx, id, info.Title, ds.initial); err != nil {
			log.Warn("create failed", zap.Error(err))
			cs.settle(id, snap, ds)
			return
		}
		ds.created = false
		ds.titleDirty = false
	}

	// Ops go first so a crash between the two writes can be replayed.
	for i, op := range newOps {
		version := ds.flushedOps + i + 1
		if err := cs.backing.AppendOperation(ctx, id, op, version); err != nil {
			log.Warn("flush op failed", zap.Int("version", version), zap.Error(err))
			break
		}
		ds.flushedOps++
	}

	if ds.contentDirty {
		if err := cs.backing.UpdateContent(ctx, id, info.Content, info.Version); err != nil {
			log.Warn("flush content failed", zap.Error(err))
		} else {
			ds.contentDirty = false
		}
	}
	if ds.titleDirty {
		if err := cs.backing.Rename(ctx, id, info.Title); err != nil {
			log.Warn("flush title failed", zap.Error(err))
		} else {
			ds.titleDirty = false
		}
	}

	cs.settle(id, snap, ds)
}

// settle folds the outcome of flushing snap back into the authoritative
// dirty state. Flags set by writes that raced the flush stay set.
func (cs *CachedStore) settle(id string, snap dirtyState, done *dirtyState) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cur := cs.dirty[id]
	if cur == nil {
		if snap.created && !done.created {
			// Deleted locally after we wrote it to the backing store.
			cs.epoch++
			cs.dirty[id] = &dirtyState{deleted: true, epoch: cs.epoch, incarnation: cs.epoch}
		}
		return
	}
	if cur.incarnation != snap.incarnation {
		return
	}
	cur.deleted = done.deleted
	cur.created = done.created
	cur.flushedOps = done.flushedOps
	if cur.epoch == snap.epoch {
		cur.contentDirty = done.contentDirty
		cur.titleDirty = done.titleDirty
	}
	if cur.clean(cs.historyLen(id)) {
		delete(cs.dirty, id)
	}
}

// Close signals the flush loop to perform a final flush and waits for it
// to complete.
func (cs *CachedStore) Close() {
	close(cs.stop)
	<-cs.done
}
