package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Entry datos de una acción a registrar.
type Entry struct {
	Actor      entity.Actor
	BranchID   string
	Action     string
	ObjectType string
	ObjectID   string
	Reason     string
	Before     map[string]any
	After      map[string]any
}

// Trail bitácora append-only. Record siempre escribe con los repositorios de la unidad atómica
// del llamador, de modo que un fallo al auditar revierte la mutación completa.
type Trail struct {
	repo   repository.AuditLogRepository
	policy access.Policy
	now    func() time.Time
}

// NewTrail construye la bitácora. repo se usa solo para consultas.
func NewTrail(repo repository.AuditLogRepository, policy access.Policy) *Trail {
	return &Trail{repo: repo, policy: policy, now: time.Now}
}

// Policy devuelve la política de alcance con la que se filtran las consultas.
func (t *Trail) Policy() access.Policy { return t.policy }

// NormalizeReason recorta, normaliza a NFC y elimina caracteres de control.
// Un motivo vacío tras normalizar es domain.ErrMissingReason.
func NormalizeReason(reason string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, norm.NFC.String(reason))
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", domain.ErrMissingReason
	}
	return clean, nil
}

// Record anexa una entrada usando repo (el de la transacción en curso).
func (t *Trail) Record(ctx context.Context, repo repository.AuditLogRepository, e Entry) (*entity.AuditLog, error) {
	reason, err := NormalizeReason(e.Reason)
	if err != nil {
		return nil, err
	}
	if e.Action == "" {
		return nil, fmt.Errorf("%w: acción de auditoría vacía", domain.ErrInvalidInput)
	}

	after := make(map[string]any, len(e.After)+1)
	for k, v := range e.After {
		after[k] = v
	}
	if _, ok := after["reason"]; !ok {
		after["reason"] = reason
	}
	beforeJSON, err := marshalSnapshot(e.Before)
	if err != nil {
		return nil, err
	}
	afterJSON, err := marshalSnapshot(after)
	if err != nil {
		return nil, err
	}

	log := &entity.AuditLog{
		ActorID:       e.Actor.ID,
		ActorUsername: e.Actor.DisplayName(),
		BranchID:      e.BranchID,
		Action:        e.Action,
		ObjectType:    e.ObjectType,
		ObjectID:      e.ObjectID,
		Reason:        reason,
		Before:        beforeJSON,
		After:         afterJSON,
		CreatedAt:     t.now().UTC(),
	}
	if err := repo.Append(ctx, log); err != nil {
		return nil, fmt.Errorf("append audit log: %w", err)
	}
	return log, nil
}

// Entries consulta la bitácora. Sin sucursal en el filtro, un actor sin alcance
// entre sucursales solo ve la suya.
func (t *Trail) Entries(ctx context.Context, actor entity.Actor, filter entity.AuditFilter) ([]*entity.AuditLog, error) {
	if filter.BranchID != "" {
		if err := access.Require(t.policy, actor, filter.BranchID, access.ReadOnly); err != nil {
			return nil, err
		}
	} else if access.CrossBranch(t.policy, actor) < access.ReadOnly {
		if actor.HomeBranchID == "" {
			return nil, fmt.Errorf("%w: actor sin sucursal base", domain.ErrForbidden)
		}
		filter.BranchID = actor.HomeBranchID
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return t.repo.List(ctx, filter)
}

func marshalSnapshot(m map[string]any) (json.RawMessage, error) {
	if m == nil {
		return json.RawMessage(`{}`), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return b, nil
}
