package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dicri/evidence-service/internal/domain"
)

// MemoryStore is an in-process Store. Transactions are serialized by a
// single mutex and rolled back by restoring a snapshot.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

type memState struct {
	users     map[int64]domain.User
	caseFiles map[int64]domain.CaseFile
	evidence  map[int64]domain.EvidenceItem
	audit     []domain.AuditEntry

	userSeq, caseFileSeq, evidenceSeq, auditSeq int64
	last                                        time.Time
}

func newMemState() *memState {
	return &memState{
		users:     map[int64]domain.User{},
		caseFiles: map[int64]domain.CaseFile{},
		evidence:  map[int64]domain.EvidenceItem{},
	}
}

func (s *memState) clone() *memState {
	c := *s
	c.users = make(map[int64]domain.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.caseFiles = make(map[int64]domain.CaseFile, len(s.caseFiles))
	for k, v := range s.caseFiles {
		c.caseFiles[k] = v
	}
	c.evidence = make(map[int64]domain.EvidenceItem, len(s.evidence))
	for k, v := range s.evidence {
		c.evidence[k] = v
	}
	c.audit = append([]domain.AuditEntry(nil), s.audit...)
	return &c
}

// now is strictly increasing so updated_at comparisons are meaningful.
func (s *memState) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// memView binds the state to a locking strategy: the top-level store locks
// per call, a transactional view runs under the lock already held by InTx.
type memView struct {
	st   *memState
	lock func() func()
}

func noLock() func() { return func() {} }

func (s *MemoryStore) view() memView {
	return memView{st: s.state, lock: func() func() {
		s.mu.Lock()
		return s.mu.Unlock
	}}
}

func (s *MemoryStore) CaseFiles() CaseFileRepository         { return memCaseFiles{s.view()} }
func (s *MemoryStore) EvidenceItems() EvidenceItemRepository { return memEvidence{s.view()} }
func (s *MemoryStore) Users() UserRepository                 { return memUsers{s.view()} }
func (s *MemoryStore) AuditLogs() AuditLogRepository         { return memAudit{s.view()} }
func (s *MemoryStore) Stats() StatsRepository                { return memStats{s.view()} }

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(memTx{memView{st: s.state, lock: noLock}}); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

type memTx struct {
	v memView
}

func (t memTx) CaseFiles() CaseFileRepository         { return memCaseFiles{t.v} }
func (t memTx) EvidenceItems() EvidenceItemRepository { return memEvidence{t.v} }
func (t memTx) Users() UserRepository                 { return memUsers{t.v} }
func (t memTx) AuditLogs() AuditLogRepository         { return memAudit{t.v} }
func (t memTx) Stats() StatsRepository                { return memStats{t.v} }

func (t memTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

// case files

type memCaseFiles struct{ v memView }

func stripCaseFile(cf domain.CaseFile) domain.CaseFile {
	cf.Technician = nil
	cf.Coordinator = nil
	cf.EvidenceItems = nil
	return cf
}

func (r memCaseFiles) Create(ctx context.Context, cf *domain.CaseFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	for _, existing := range st.caseFiles {
		if existing.CaseNumber == cf.CaseNumber {
			return fmt.Errorf("%w: expedientes_case_number_key", ErrDuplicate)
		}
	}
	st.caseFileSeq++
	now := st.now()
	cf.ID = st.caseFileSeq
	cf.CreatedAt = now
	cf.UpdatedAt = now
	st.caseFiles[cf.ID] = stripCaseFile(*cf)
	return nil
}

func (r memCaseFiles) Update(ctx context.Context, cf *domain.CaseFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	existing, ok := st.caseFiles[cf.ID]
	if !ok {
		return ErrNotFound
	}
	cf.UpdatedAt = st.now()
	updated := stripCaseFile(*cf)
	updated.CaseNumber = existing.CaseNumber
	updated.TechnicianID = existing.TechnicianID
	updated.CreatedAt = existing.CreatedAt
	st.caseFiles[cf.ID] = updated
	return nil
}

func (r memCaseFiles) Touch(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	cf, ok := st.caseFiles[id]
	if !ok {
		return ErrNotFound
	}
	cf.UpdatedAt = st.now()
	st.caseFiles[id] = cf
	return nil
}

func (r memCaseFiles) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	if _, ok := st.caseFiles[id]; !ok {
		return ErrNotFound
	}
	delete(st.caseFiles, id)
	for eid, item := range st.evidence {
		if item.CaseFileID == id {
			delete(st.evidence, eid)
		}
	}
	return nil
}

func (r memCaseFiles) GetByID(ctx context.Context, id int64) (*domain.CaseFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	cf, ok := r.v.st.caseFiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &cf, nil
}

func (r memCaseFiles) GetByIDForUpdate(ctx context.Context, id int64) (*domain.CaseFile, error) {
	return r.GetByID(ctx, id)
}

func (r memCaseFiles) GetByCaseNumber(ctx context.Context, caseNumber string) (*domain.CaseFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	for _, cf := range r.v.st.caseFiles {
		if cf.CaseNumber == caseNumber {
			found := cf
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r memCaseFiles) List(ctx context.Context, filter CaseFileFilter) ([]domain.CaseFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	var result []domain.CaseFile
	for _, cf := range r.v.st.caseFiles {
		if filter.Status != nil && cf.Status != *filter.Status {
			continue
		}
		if filter.TechnicianID != nil && cf.TechnicianID != *filter.TechnicianID {
			continue
		}
		if filter.CoordinatorID != nil && (cf.CoordinatorID == nil || *cf.CoordinatorID != *filter.CoordinatorID) {
			continue
		}
		if !filter.Created.contains(cf.CreatedAt) {
			continue
		}
		result = append(result, cf)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// evidence items

type memEvidence struct{ v memView }

func (r memEvidence) codeTaken(caseFileID int64, code string, exceptID int64) bool {
	for _, item := range r.v.st.evidence {
		if item.CaseFileID == caseFileID && item.Code == code && item.ID != exceptID {
			return true
		}
	}
	return false
}

func (r memEvidence) Create(ctx context.Context, item *domain.EvidenceItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	if _, ok := st.caseFiles[item.CaseFileID]; !ok {
		return fmt.Errorf("case file %d: %w", item.CaseFileID, ErrNotFound)
	}
	if r.codeTaken(item.CaseFileID, item.Code, 0) {
		return fmt.Errorf("%w: uq_indicios_expediente_code", ErrDuplicate)
	}
	st.evidenceSeq++
	now := st.now()
	item.ID = st.evidenceSeq
	item.CreatedAt = now
	item.UpdatedAt = now
	stored := *item
	stored.Technician = nil
	st.evidence[item.ID] = stored
	return nil
}

func (r memEvidence) Update(ctx context.Context, item *domain.EvidenceItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	existing, ok := st.evidence[item.ID]
	if !ok {
		return ErrNotFound
	}
	if r.codeTaken(existing.CaseFileID, item.Code, item.ID) {
		return fmt.Errorf("%w: uq_indicios_expediente_code", ErrDuplicate)
	}
	item.UpdatedAt = st.now()
	stored := *item
	stored.Technician = nil
	stored.CaseFileID = existing.CaseFileID
	stored.TechnicianID = existing.TechnicianID
	stored.CreatedAt = existing.CreatedAt
	st.evidence[item.ID] = stored
	return nil
}

func (r memEvidence) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	if _, ok := r.v.st.evidence[id]; !ok {
		return ErrNotFound
	}
	delete(r.v.st.evidence, id)
	return nil
}

func (r memEvidence) DeleteByCaseFile(ctx context.Context, caseFileID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.v.lock()()
	var n int64
	for id, item := range r.v.st.evidence {
		if item.CaseFileID == caseFileID {
			delete(r.v.st.evidence, id)
			n++
		}
	}
	return n, nil
}

func (r memEvidence) GetByID(ctx context.Context, id int64) (*domain.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	item, ok := r.v.st.evidence[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r memEvidence) GetByCode(ctx context.Context, caseFileID int64, code string) (*domain.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	for _, item := range r.v.st.evidence {
		if item.CaseFileID == caseFileID && item.Code == code {
			found := item
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r memEvidence) ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.EvidenceItem, error) {
	return r.ListByCaseFileIDs(ctx, []int64{caseFileID})
}

func (r memEvidence) ListByCaseFileIDs(ctx context.Context, caseFileIDs []int64) ([]domain.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	wanted := make(map[int64]bool, len(caseFileIDs))
	for _, id := range caseFileIDs {
		wanted[id] = true
	}
	var result []domain.EvidenceItem
	for _, item := range r.v.st.evidence {
		if wanted[item.CaseFileID] {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.CaseFileID != b.CaseFileID {
			return a.CaseFileID < b.CaseFileID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (r memEvidence) CountByCaseFile(ctx context.Context, caseFileID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.v.lock()()
	count := 0
	for _, item := range r.v.st.evidence {
		if item.CaseFileID == caseFileID {
			count++
		}
	}
	return count, nil
}

// users

type memUsers struct{ v memView }

func (r memUsers) conflict(user *domain.User) error {
	for _, existing := range r.v.st.users {
		if existing.ID == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", ErrDuplicate)
		}
		if existing.Username == user.Username {
			return fmt.Errorf("%w: users_username_key", ErrDuplicate)
		}
	}
	return nil
}

func (r memUsers) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	if err := r.conflict(user); err != nil {
		return err
	}
	st.userSeq++
	now := st.now()
	user.ID = st.userSeq
	user.CreatedAt = now
	user.UpdatedAt = now
	st.users[user.ID] = *user
	return nil
}

func (r memUsers) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	existing, ok := st.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.conflict(user); err != nil {
		return err
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = st.now()
	st.users[user.ID] = *user
	return nil
}

func (r memUsers) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	for _, u := range r.v.st.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Username == username })
}

func (r memUsers) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	var result []domain.User
	for _, u := range r.v.st.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r memUsers) ListByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	var result []domain.User
	for _, id := range ids {
		if u, ok := r.v.st.users[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r memUsers) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.v.lock()()
	return len(r.v.st.users), nil
}

// audit log

type memAudit struct{ v memView }

func (r memAudit) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.st
	st.auditSeq++
	entry.ID = st.auditSeq
	entry.CreatedAt = st.now()
	st.audit = append(st.audit, *entry)
	return nil
}

func (r memAudit) ListByCaseFile(ctx context.Context, caseFileID int64) ([]domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	var result []domain.AuditEntry
	for _, entry := range r.v.st.audit {
		switch entry.EntityType {
		case domain.EntityTypeCaseFile:
			if entry.EntityID != nil && *entry.EntityID == caseFileID {
				result = append(result, entry)
			}
		case domain.EntityTypeEvidenceItem:
			if id, ok := entry.Details[domain.AuditDetailCaseFileID].(int64); ok && id == caseFileID {
				result = append(result, entry)
			}
		}
	}
	return result, nil
}

// stats

type memStats struct{ v memView }

func (r memStats) General(ctx context.Context, created TimeRange) (*domain.GeneralStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	st := r.v.st
	var stats domain.GeneralStats
	inRange := map[int64]bool{}
	for _, cf := range st.caseFiles {
		if !created.contains(cf.CreatedAt) {
			continue
		}
		inRange[cf.ID] = true
		stats.TotalCaseFiles++
		switch cf.Status {
		case domain.CaseFileStatusRegistering:
			stats.Registering++
		case domain.CaseFileStatusInReview:
			stats.InReview++
		case domain.CaseFileStatusApproved:
			stats.Approved++
		case domain.CaseFileStatusRejected:
			stats.Rejected++
		}
	}
	for _, item := range st.evidence {
		if inRange[item.CaseFileID] {
			stats.TotalEvidence++
		}
	}
	return &stats, nil
}

func (r memStats) ByTechnician(ctx context.Context, created TimeRange) ([]domain.TechnicianStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	st := r.v.st
	byID := map[int64]*domain.TechnicianStats{}
	var result []domain.TechnicianStats
	for _, u := range st.users {
		if u.Role == domain.RoleTechnician && u.IsActive {
			byID[u.ID] = &domain.TechnicianStats{ID: u.ID, FullName: u.FullName}
		}
	}
	for _, cf := range st.caseFiles {
		s, ok := byID[cf.TechnicianID]
		if !ok || !created.contains(cf.CreatedAt) {
			continue
		}
		s.TotalCaseFiles++
		switch cf.Status {
		case domain.CaseFileStatusRegistering:
			s.Registering++
		case domain.CaseFileStatusInReview:
			s.InReview++
		case domain.CaseFileStatusApproved:
			s.Approved++
		case domain.CaseFileStatusRejected:
			s.Rejected++
		}
	}
	for _, item := range st.evidence {
		if s, ok := byID[item.TechnicianID]; ok {
			s.TotalEvidence++
		}
	}
	for _, s := range byID {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalCaseFiles != result[j].TotalCaseFiles {
			return result[i].TotalCaseFiles > result[j].TotalCaseFiles
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r memStats) ByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	counts := map[domain.CaseFileStatus]int64{}
	for _, cf := range r.v.st.caseFiles {
		counts[cf.Status]++
	}
	var result []domain.StatusCount
	for status, n := range counts {
		result = append(result, domain.StatusCount{Status: status, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Status < result[j].Status })
	return result, nil
}

func (r memStats) Monthly(ctx context.Context, year int) ([]domain.MonthlyCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.v.lock()()
	counts := map[int]int64{}
	for _, cf := range r.v.st.caseFiles {
		created := cf.CreatedAt.UTC()
		if created.Year() == year {
			counts[int(created.Month())]++
		}
	}
	var result []domain.MonthlyCount
	for month, n := range counts {
		result = append(result, domain.MonthlyCount{Month: month, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result, nil
}
