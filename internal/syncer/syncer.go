// Package syncer decides when local mutations are pushed to the sync API
// and when the remote snapshot is pulled and merged. Local storage is
// always written first; the remote side is strictly opportunistic.
package syncer

import (
	"context"
	"log"
	"sync"
	"time"

	"campusmark/internal/localstore"
	"campusmark/internal/merge"
	"campusmark/internal/model"
	"campusmark/internal/remote"
)

// now is swappable in tests.
var now = time.Now

// Transport is the subset of the sync API client the orchestrator needs.
type Transport interface {
	FetchUserData(ctx context.Context, userID string) (model.Data, error)
	SyncRecords(ctx context.Context, records []model.Record, userID string) (remote.SyncResult, error)
	SyncCourses(ctx context.Context, courses []model.Course, userID string) (remote.SyncResult, error)
	SyncSemesters(ctx context.Context, semesters []model.Semester, userID string) (remote.SyncResult, error)
	DeleteUserData(ctx context.Context, userID string) (remote.DeleteResult, error)
}

// Syncer orchestrates local persistence and remote synchronization.
// A single mutex serializes sync cycles: overlapping triggers queue
// behind the in-flight cycle instead of racing it.
type Syncer struct {
	store  *localstore.Store
	remote Transport
	online func() bool

	mu sync.Mutex
}

// New creates a syncer. online reports current connectivity; when nil the
// syncer assumes it is always online.
func New(store *localstore.Store, transport Transport, online func() bool) *Syncer {
	if online == nil {
		online = func() bool { return true }
	}
	return &Syncer{store: store, remote: transport, online: online}
}

// LocalData returns the current local snapshot. Corruption fails open to
// empty collections inside the store.
func (s *Syncer) LocalData() model.Data {
	return s.store.Data()
}

// userID returns the remote partition key, or "" when nobody is signed in.
func (s *Syncer) userID() string {
	user, err := s.store.User()
	if err != nil {
		return ""
	}
	return user.Email
}

// SaveLocally overwrites the three local collections, then pushes when
// online. Storage failures propagate; push failures do not.
func (s *Syncer) SaveLocally(ctx context.Context, d model.Data) error {
	if err := s.store.SaveCollections(d); err != nil {
		return err
	}
	if s.online() {
		s.Sync(ctx, d)
	}
	return nil
}

// Sync pushes unsynced items to the remote store. Returns false when
// offline, unauthenticated, or when any issued upsert failed. Zero
// network calls are made when everything is already synced.
func (s *Syncer) Sync(ctx context.Context, d model.Data) bool {
	if !s.online() {
		log.Println("offline - sync postponed")
		return false
	}
	userID := s.userID()
	if userID == "" {
		log.Println("no user signed in - skipping sync")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.push(ctx, d, userID)
}

// pushOutcome is one kind's upsert acknowledgment plus the identity set
// that was actually sent, captured before the call.
type pushOutcome struct {
	ok     bool
	synced int
	sent   map[string]struct{}
}

// push sends the unsynced subset of each collection as three concurrent
// upserts. Only identities that were part of a successful call get their
// synced flag flipped; items that were never sent keep their state.
// Caller holds the mutex.
func (s *Syncer) push(ctx context.Context, d model.Data, userID string) bool {
	var unsyncedRecords []model.Record
	for _, r := range d.Records {
		if !r.IsSynced {
			unsyncedRecords = append(unsyncedRecords, r)
		}
	}
	var unsyncedCourses []model.Course
	for _, c := range d.Courses {
		if !c.IsSynced {
			unsyncedCourses = append(unsyncedCourses, c)
		}
	}
	var unsyncedSemesters []model.Semester
	for _, sem := range d.Semesters {
		if !sem.IsSynced {
			unsyncedSemesters = append(unsyncedSemesters, sem)
		}
	}

	if len(unsyncedRecords) == 0 && len(unsyncedCourses) == 0 && len(unsyncedSemesters) == 0 {
		return true
	}

	var wg sync.WaitGroup
	var records, courses, semesters pushOutcome

	if len(unsyncedRecords) > 0 {
		records.sent = make(map[string]struct{}, len(unsyncedRecords))
		for _, r := range unsyncedRecords {
			records.sent[r.Key()] = struct{}{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.remote.SyncRecords(ctx, unsyncedRecords, userID)
			if err != nil {
				log.Printf("record sync failed: %v", err)
				return
			}
			records.ok, records.synced = res.Success, res.Synced
		}()
	}
	if len(unsyncedCourses) > 0 {
		courses.sent = make(map[string]struct{}, len(unsyncedCourses))
		for _, c := range unsyncedCourses {
			courses.sent[c.ID] = struct{}{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.remote.SyncCourses(ctx, unsyncedCourses, userID)
			if err != nil {
				log.Printf("course sync failed: %v", err)
				return
			}
			courses.ok, courses.synced = res.Success, res.Synced
		}()
	}
	if len(unsyncedSemesters) > 0 {
		semesters.sent = make(map[string]struct{}, len(unsyncedSemesters))
		for _, sem := range unsyncedSemesters {
			semesters.sent[sem.ID] = struct{}{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.remote.SyncSemesters(ctx, unsyncedSemesters, userID)
			if err != nil {
				log.Printf("semester sync failed: %v", err)
				return
			}
			semesters.ok, semesters.synced = res.Success, res.Synced
		}()
	}
	wg.Wait()

	total := records.synced + courses.synced + semesters.synced
	if total > 0 {
		log.Printf("synced %d items", total)
		s.markSynced(records, courses, semesters)
	}

	ok := true
	if records.sent != nil && !records.ok {
		ok = false
	}
	if courses.sent != nil && !courses.ok {
		ok = false
	}
	if semesters.sent != nil && !semesters.ok {
		ok = false
	}
	return ok
}

// markSynced flips the synced flag on the current local state, but only
// for identities that were part of a kind's successful upsert.
func (s *Syncer) markSynced(records, courses, semesters pushOutcome) {
	current := s.store.Data()
	if records.ok {
		for i, r := range current.Records {
			if _, sent := records.sent[r.Key()]; sent {
				current.Records[i].IsSynced = true
			}
		}
	}
	if courses.ok {
		for i, c := range current.Courses {
			if _, sent := courses.sent[c.ID]; sent {
				current.Courses[i].IsSynced = true
			}
		}
	}
	if semesters.ok {
		for i, sem := range current.Semesters {
			if _, sent := semesters.sent[sem.ID]; sent {
				current.Semesters[i].IsSynced = true
			}
		}
	}
	if err := s.store.SaveCollections(current); err != nil {
		log.Printf("synced-flag rewrite failed: %v", err)
	}
}

// FetchAndMerge pulls the remote snapshot, merges it with local data by
// last-writer-wins, persists the result, and returns it. It always
// returns a usable snapshot: offline, unauthenticated, and failed
// fetches all fall back to local data.
func (s *Syncer) FetchAndMerge(ctx context.Context) model.Data {
	userID := s.userID()
	if userID == "" || !s.online() {
		return s.store.Data()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	remoteData, err := s.remote.FetchUserData(ctx, userID)
	if err != nil {
		log.Printf("remote fetch failed: %v", err)
		return s.store.Data()
	}
	local := s.store.Data()

	merged := model.Data{
		Records:   merge.Records(local.Records, remoteData.Records),
		Courses:   merge.Courses(local.Courses, remoteData.Courses),
		Semesters: merge.Semesters(local.Semesters, remoteData.Semesters),
	}

	if err := s.store.SaveCollections(merged); err != nil {
		log.Printf("persist of merged data failed: %v", err)
		return merged
	}
	// Remote items that won the merge are already synced; locally-won
	// items still carry isSynced=false and go out on this push.
	s.push(ctx, merged, userID)

	return merged
}

// ClearAll wipes every local key and, when online with a signed-in user,
// deletes the user's remote data as well. Destructive and irreversible.
func (s *Syncer) ClearAll(ctx context.Context) error {
	log.Println("performing master reset")
	userID := s.userID()

	if err := s.store.Clear(); err != nil {
		return err
	}
	if s.online() && userID != "" {
		if _, err := s.remote.DeleteUserData(ctx, userID); err != nil {
			log.Printf("remote delete failed: %v", err)
		}
	}
	return nil
}

// Backup writes a timestamped local snapshot and pushes when online.
// Empty snapshots are skipped.
func (s *Syncer) Backup(ctx context.Context) {
	d := s.store.Data()
	if d.Empty() {
		return
	}
	name, err := s.store.WriteBackup(d, now())
	if err != nil {
		log.Printf("backup failed: %v", err)
		return
	}
	log.Printf("auto-backup created: %s", name)

	if s.online() {
		s.Sync(ctx, d)
	}
}
