package repository

import (
	"context"
	"testing"

	"MacroLearn/internal/domain/models"
)

func TestMemoryBiasStoreReadUnknownAsset(t *testing.T) {
	s := NewMemoryBiasStore()
	st, err := s.Read(context.Background(), "btc")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if st.AssetID != "btc" || st.BullBias != 0 || st.Version != 0 {
		t.Fatalf("unknown asset should read neutral, got %+v", st)
	}
}

func TestMemoryBiasStoreApplyDeltas(t *testing.T) {
	s := NewMemoryBiasStore()
	ctx := context.Background()

	updated, err := s.ApplyDeltas(ctx, map[string]models.BiasDelta{
		"btc": {Bull: 0.05},
		"eth": {Bear: -0.05, Vol: 0.1},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("updated = %d states, want 2", len(updated))
	}

	btc, _ := s.Read(ctx, "btc")
	if btc.BullBias != 0.05 || btc.Version != 1 {
		t.Fatalf("btc state = %+v, want bull 0.05 version 1", btc)
	}
	eth, _ := s.Read(ctx, "eth")
	if eth.BearBias != -0.05 || eth.VolBias != 0.1 {
		t.Fatalf("eth state = %+v", eth)
	}
}

func TestMemoryBiasStoreClampsAtBounds(t *testing.T) {
	s := NewMemoryBiasStore()
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		if _, err := s.ApplyDeltas(ctx, map[string]models.BiasDelta{"btc": {Bull: 0.05, Bear: -0.05}}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	st, _ := s.Read(ctx, "btc")
	if st.BullBias != 1 {
		t.Fatalf("bull bias = %f, want clamped at 1", st.BullBias)
	}
	if st.BearBias != -1 {
		t.Fatalf("bear bias = %f, want clamped at -1", st.BearBias)
	}
	if st.Version != 30 {
		t.Fatalf("version = %d, want 30", st.Version)
	}
}

func TestMemoryBiasStoreTimestampStrictlyIncreases(t *testing.T) {
	s := NewMemoryBiasStore()
	ctx := context.Background()

	var prev models.BiasState
	for i := 0; i < 5; i++ {
		if _, err := s.ApplyDeltas(ctx, map[string]models.BiasDelta{"btc": {Vol: 0.01}}); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		st, _ := s.Read(ctx, "btc")
		if i > 0 && !st.LastUpdated.After(prev.LastUpdated) {
			t.Fatalf("last_updated did not advance: %v then %v", prev.LastUpdated, st.LastUpdated)
		}
		prev = st
	}
}

func TestMemoryBiasStoreEmptyBatch(t *testing.T) {
	s := NewMemoryBiasStore()
	updated, err := s.ApplyDeltas(context.Background(), nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated != nil {
		t.Fatalf("empty batch returned states: %v", updated)
	}
}
