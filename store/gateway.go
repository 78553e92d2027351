/*
Package store maps domain repositories onto a generic key-value Store.

PURPOSE:
  The engine and the plan book talk to typed repositories. Gateway
  implements both on top of any generic.Store (SQLite in production,
  memory in tests) by assigning each entity a fixed key and routing every
  value through the factory codecs.

KEYS:
  user_settings        WageConfig object
  work_sessions        array of completed WorkSession
  currentSession       the in-flight WorkSession object (absent when idle)
  certification_plans  array of Plan

  Older installations stored the same records under worker, workHistory
  and qualificationPlans. Reads fall back to those keys when the primary
  key is absent; writes always go to the primary key.

ERRORS:
  Store and codec failures are returned as *generic.PersistenceError with
  the operation and key filled in.

SEE ALSO:
  - factory/codec.go: JSON schema per entity
  - worktime/ledger.go: Repository it implements
  - certification/book.go: Repository it implements
*/
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/warp/worktime-engine/certification"
	"github.com/warp/worktime-engine/factory"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

const (
	KeyWageConfig = "user_settings"
	KeyHistory    = "work_sessions"
	KeyActive     = "currentSession"
	KeyPlans      = "certification_plans"

	legacyKeyWageConfig = "worker"
	legacyKeyHistory    = "workHistory"
	legacyKeyPlans      = "qualificationPlans"
)

var (
	_ worktime.Repository      = (*Gateway)(nil)
	_ certification.Repository = (*Gateway)(nil)
)

// Gateway implements worktime.Repository and certification.Repository.
type Gateway struct {
	kv generic.Store
}

func NewGateway(kv generic.Store) *Gateway {
	return &Gateway{kv: kv}
}

// =============================================================================
// WAGE CONFIG
// =============================================================================

func (g *Gateway) LoadWageConfig(ctx context.Context) (worktime.WageConfig, bool, error) {
	raw, err := g.getMap(ctx, KeyWageConfig, legacyKeyWageConfig)
	if errors.Is(err, generic.ErrKeyNotFound) {
		return worktime.WageConfig{}, false, nil
	}
	if err != nil {
		return worktime.WageConfig{}, false, err
	}
	cfg, err := factory.ParseWageConfig(raw)
	if err != nil {
		return worktime.WageConfig{}, false, err
	}
	return cfg, true, nil
}

func (g *Gateway) SaveWageConfig(ctx context.Context, cfg worktime.WageConfig) error {
	raw, err := factory.MarshalWageConfig(cfg)
	if err != nil {
		return &generic.PersistenceError{Op: "encode", Key: KeyWageConfig, Err: err}
	}
	return wrap("set", KeyWageConfig, g.kv.SetMap(ctx, KeyWageConfig, raw))
}

// =============================================================================
// HISTORY
// =============================================================================

func (g *Gateway) LoadHistory(ctx context.Context) ([]worktime.WorkSession, error) {
	raw, err := g.getList(ctx, KeyHistory, legacyKeyHistory)
	if errors.Is(err, generic.ErrKeyNotFound) {
		return []worktime.WorkSession{}, nil
	}
	if err != nil {
		return nil, err
	}
	return factory.ParseHistory(raw)
}

func (g *Gateway) SaveHistory(ctx context.Context, history []worktime.WorkSession) error {
	raw, err := factory.MarshalHistory(history)
	if err != nil {
		return &generic.PersistenceError{Op: "encode", Key: KeyHistory, Err: err}
	}
	return wrap("set", KeyHistory, g.kv.SetList(ctx, KeyHistory, raw))
}

// =============================================================================
// ACTIVE SESSION
// =============================================================================

func (g *Gateway) LoadActive(ctx context.Context) (*worktime.WorkSession, error) {
	raw, err := g.kv.GetMap(ctx, KeyActive)
	if errors.Is(err, generic.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get", KeyActive, err)
	}
	s, err := factory.ParseWorkSession(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *Gateway) SaveActive(ctx context.Context, s worktime.WorkSession) error {
	raw, err := factory.MarshalWorkSession(s)
	if err != nil {
		return &generic.PersistenceError{Op: "encode", Key: KeyActive, Err: err}
	}
	return wrap("set", KeyActive, g.kv.SetMap(ctx, KeyActive, raw))
}

func (g *Gateway) ClearActive(ctx context.Context) error {
	return wrap("remove", KeyActive, g.kv.Remove(ctx, KeyActive))
}

// =============================================================================
// CERTIFICATION PLANS
// =============================================================================

func (g *Gateway) LoadPlans(ctx context.Context) ([]certification.Plan, error) {
	raw, err := g.getList(ctx, KeyPlans, legacyKeyPlans)
	if errors.Is(err, generic.ErrKeyNotFound) {
		return []certification.Plan{}, nil
	}
	if err != nil {
		return nil, err
	}
	return factory.ParsePlans(raw)
}

func (g *Gateway) SavePlans(ctx context.Context, plans []certification.Plan) error {
	raw, err := factory.MarshalPlans(plans)
	if err != nil {
		return &generic.PersistenceError{Op: "encode", Key: KeyPlans, Err: err}
	}
	return wrap("set", KeyPlans, g.kv.SetList(ctx, KeyPlans, raw))
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// DropLegacy removes the pre-rename keys once the primary keys exist.
// It returns how many legacy keys were removed.
func (g *Gateway) DropLegacy(ctx context.Context) (int, error) {
	pairs := [][2]string{
		{KeyWageConfig, legacyKeyWageConfig},
		{KeyHistory, legacyKeyHistory},
		{KeyPlans, legacyKeyPlans},
	}
	removed := 0
	for _, p := range pairs {
		if _, err := g.kv.GetString(ctx, p[0]); err != nil {
			if errors.Is(err, generic.ErrKeyNotFound) {
				continue
			}
			return removed, wrap("get", p[0], err)
		}
		if _, err := g.kv.GetString(ctx, p[1]); errors.Is(err, generic.ErrKeyNotFound) {
			continue
		}
		if err := g.kv.Remove(ctx, p[1]); err != nil {
			return removed, wrap("remove", p[1], err)
		}
		removed++
	}
	return removed, nil
}

// Wipe deletes every key in the underlying store, configuration included.
func (g *Gateway) Wipe(ctx context.Context) error {
	return wrap("clear", "*", g.kv.Clear(ctx))
}

// =============================================================================
// HELPERS
// =============================================================================

func (g *Gateway) getMap(ctx context.Context, key, legacy string) (json.RawMessage, error) {
	return g.getWithFallback(ctx, g.kv.GetMap, key, legacy)
}

func (g *Gateway) getList(ctx context.Context, key, legacy string) (json.RawMessage, error) {
	return g.getWithFallback(ctx, g.kv.GetList, key, legacy)
}

func (g *Gateway) getWithFallback(
	ctx context.Context,
	get func(context.Context, string) (json.RawMessage, error),
	key, legacy string,
) (json.RawMessage, error) {
	raw, err := get(ctx, key)
	if errors.Is(err, generic.ErrKeyNotFound) {
		raw, err = get(ctx, legacy)
		if errors.Is(err, generic.ErrKeyNotFound) {
			return nil, err
		}
		return raw, wrap("get", legacy, err)
	}
	return raw, wrap("get", key, err)
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var pe *generic.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &generic.PersistenceError{Op: op, Key: key, Err: err}
}
