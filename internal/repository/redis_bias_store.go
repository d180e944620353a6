package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	applogger "MacroLearn/pkg/logger"
)

const (
	biasKeyPrefix    = "bias:"
	biasTxMaxRetries = 5
)

// ErrBiasConflict is returned when an optimistic transaction keeps losing to
// concurrent writers after all retries.
var ErrBiasConflict = errors.New("bias update conflicted with concurrent writers")

// RedisBiasStore keeps one hash per asset under bias:{asset_id}. Cycle
// commits run under WATCH over every touched key, so a concurrent cycle
// for any of the same assets forces a retry instead of a lost update.
type RedisBiasStore struct {
	cli *redis.Client
	l   *applogger.Logger
}

var _ domrepo.BiasStore = (*RedisBiasStore)(nil)

// RedisBiasConfig holds the bias store connection settings.
type RedisBiasConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisBiasStore(cfg RedisBiasConfig) *RedisBiasStore {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisBiasStore{cli: cli}
}

// SetLogger injects a structured logger.
func (s *RedisBiasStore) SetLogger(l *applogger.Logger) { s.l = l }

func biasKey(assetID string) string { return biasKeyPrefix + assetID }

// Read returns the stored bias row or the neutral state when the asset has
// no row yet.
func (s *RedisBiasStore) Read(ctx context.Context, assetID string) (models.BiasState, error) {
	vals, err := s.cli.HGetAll(ctx, biasKey(assetID)).Result()
	if err != nil {
		return models.BiasState{}, fmt.Errorf("read bias %q: %w", assetID, err)
	}
	if len(vals) == 0 {
		return models.NeutralBias(assetID), nil
	}
	return parseBiasHash(assetID, vals)
}

// ApplyDeltas applies every asset's delta atomically: the whole batch commits
// in one MULTI/EXEC or not at all. Components are clamped to [-1,1] after
// addition and last_updated moves strictly forward.
func (s *RedisBiasStore) ApplyDeltas(ctx context.Context, deltas map[string]models.BiasDelta) ([]models.BiasState, error) {
	if len(deltas) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(deltas))
	assets := make([]string, 0, len(deltas))
	for assetID := range deltas {
		keys = append(keys, biasKey(assetID))
		assets = append(assets, assetID)
	}

	var updated []models.BiasState
	txn := func(tx *redis.Tx) error {
		updated = updated[:0]
		now := time.Now().UTC()

		states := make([]models.BiasState, 0, len(assets))
		for _, assetID := range assets {
			vals, err := tx.HGetAll(ctx, biasKey(assetID)).Result()
			if err != nil {
				return fmt.Errorf("read bias %q: %w", assetID, err)
			}
			cur := models.NeutralBias(assetID)
			if len(vals) > 0 {
				if cur, err = parseBiasHash(assetID, vals); err != nil {
					return err
				}
			}
			d := deltas[assetID]
			next := models.BiasState{
				AssetID:     assetID,
				BullBias:    models.ClampBias(cur.BullBias + d.Bull),
				BearBias:    models.ClampBias(cur.BearBias + d.Bear),
				VolBias:     models.ClampBias(cur.VolBias + d.Vol),
				Version:     cur.Version + 1,
				LastUpdated: now,
			}
			if !next.LastUpdated.After(cur.LastUpdated) {
				next.LastUpdated = cur.LastUpdated.Add(time.Nanosecond)
			}
			states = append(states, next)
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, st := range states {
				pipe.HSet(ctx, biasKey(st.AssetID), map[string]interface{}{
					"bull_bias":    formatFloat(st.BullBias),
					"bear_bias":    formatFloat(st.BearBias),
					"vol_bias":     formatFloat(st.VolBias),
					"version":      strconv.FormatInt(st.Version, 10),
					"last_updated": st.LastUpdated.Format(time.RFC3339Nano),
				})
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = append(updated, states...)
		return nil
	}

	for attempt := 0; attempt < biasTxMaxRetries; attempt++ {
		err := s.cli.Watch(ctx, txn, keys...)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			if s.l != nil {
				s.l.Warn("bias tx conflict, retrying",
					applogger.Int("attempt", attempt+1),
					applogger.Int("assets", len(assets)),
				)
			}
			continue
		}
		return nil, fmt.Errorf("apply bias deltas: %w", err)
	}
	return nil, ErrBiasConflict
}

func (s *RedisBiasStore) Health(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisBiasStore) Close() error { return s.cli.Close() }

func parseBiasHash(assetID string, vals map[string]string) (models.BiasState, error) {
	st := models.NeutralBias(assetID)
	var err error
	if v, ok := vals["bull_bias"]; ok {
		if st.BullBias, err = strconv.ParseFloat(v, 64); err != nil {
			return st, fmt.Errorf("bias %q bull_bias: %w", assetID, err)
		}
	}
	if v, ok := vals["bear_bias"]; ok {
		if st.BearBias, err = strconv.ParseFloat(v, 64); err != nil {
			return st, fmt.Errorf("bias %q bear_bias: %w", assetID, err)
		}
	}
	if v, ok := vals["vol_bias"]; ok {
		if st.VolBias, err = strconv.ParseFloat(v, 64); err != nil {
			return st, fmt.Errorf("bias %q vol_bias: %w", assetID, err)
		}
	}
	if v, ok := vals["version"]; ok {
		if st.Version, err = strconv.ParseInt(v, 10, 64); err != nil {
			return st, fmt.Errorf("bias %q version: %w", assetID, err)
		}
	}
	if v, ok := vals["last_updated"]; ok {
		if st.LastUpdated, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return st, fmt.Errorf("bias %q last_updated: %w", assetID, err)
		}
	}
	return st, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
