package usecase

import (
	"context"
	"fmt"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	applogger "MacroLearn/pkg/logger"
)

// BiasUpdater applies external feedback deltas to the bias store. Updates
// for the same asset within a batch merge additively and commit together.
type BiasUpdater struct {
	biases domrepo.BiasStore
	l      *applogger.Logger
}

func NewBiasUpdater(biases domrepo.BiasStore, l *applogger.Logger) *BiasUpdater {
	return &BiasUpdater{biases: biases, l: l}
}

// Apply commits the batch and returns the resulting row per request asset.
func (u *BiasUpdater) Apply(ctx context.Context, updates []models.BiasUpdateRequest) ([]models.BiasUpdateResponse, error) {
	deltas := make(map[string]models.BiasDelta)
	for _, up := range updates {
		d := models.BiasDelta{
			Bull: up.BiasDelta.BullBias,
			Bear: up.BiasDelta.BearBias,
			Vol:  up.BiasDelta.VolBias,
		}
		if d.IsZero() {
			continue
		}
		deltas[up.AssetID] = deltas[up.AssetID].Add(d)
	}

	applied := make(map[string]models.BiasState)
	if len(deltas) > 0 {
		states, err := u.biases.ApplyDeltas(ctx, deltas)
		if err != nil {
			return nil, fmt.Errorf("apply bias updates: %w", err)
		}
		for _, st := range states {
			applied[st.AssetID] = st
		}
	}

	out := make([]models.BiasUpdateResponse, 0, len(updates))
	for _, up := range updates {
		st, updated := applied[up.AssetID]
		if !updated {
			cur, err := u.biases.Read(ctx, up.AssetID)
			if err != nil {
				return nil, fmt.Errorf("read bias %q: %w", up.AssetID, err)
			}
			st = cur
		}
		if u.l != nil {
			u.l.Debug("bias update applied",
				applogger.String("asset_id", up.AssetID),
				applogger.String("source", up.Source),
				applogger.Bool("updated", updated),
			)
		}
		out = append(out, models.BiasUpdateResponse{
			AssetID: up.AssetID,
			CurrentBias: models.BiasBody{
				BullBias:    st.BullBias,
				BearBias:    st.BearBias,
				VolBias:     st.VolBias,
				LastUpdated: st.LastUpdated,
			},
			Updated: updated,
		})
	}
	return out, nil
}

// Read returns the stored bias row for one asset.
func (u *BiasUpdater) Read(ctx context.Context, assetID string) (models.BiasState, error) {
	return u.biases.Read(ctx, assetID)
}
