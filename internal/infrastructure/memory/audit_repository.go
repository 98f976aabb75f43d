package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*auditRepo)(nil)

type auditRepo struct {
	s *Store
	u *unit
}

func (r *auditRepo) Append(_ context.Context, e *entity.AuditLog) error {
	e.ID = r.s.seqAudit.Add(1)
	if r.u != nil {
		r.u.audit = append(r.u.audit, *e)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.audit = append(r.s.data.audit, *e)
	return nil
}

func (r *auditRepo) List(_ context.Context, f entity.AuditFilter) ([]*entity.AuditLog, error) {
	var out []*entity.AuditLog
	add := func(src []entity.AuditLog) {
		for i := range src {
			e := src[i]
			if matchAudit(&e, f) {
				out = append(out, &e)
			}
		}
	}
	r.s.mu.RLock()
	add(r.s.data.audit)
	r.s.mu.RUnlock()
	if r.u != nil {
		add(r.u.audit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, f.Offset), nil
}

func matchAudit(e *entity.AuditLog, f entity.AuditFilter) bool {
	switch {
	case f.BranchID != "" && e.BranchID != f.BranchID:
		return false
	case f.ActorID != "" && e.ActorID != f.ActorID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.ObjectType != "" && e.ObjectType != f.ObjectType:
		return false
	case f.ObjectID != "" && e.ObjectID != f.ObjectID:
		return false
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !e.CreatedAt.Before(*f.To):
		return false
	}
	return true
}
