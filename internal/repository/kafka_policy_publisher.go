package repository

import (
	"context"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
	pkgkafka "MacroLearn/pkg/kafka"
)

// KafkaPolicyPublisher pushes committed policy deltas to the policy-updates
// topic for the downstream policy manager.
type KafkaPolicyPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.PolicyPublisher = (*KafkaPolicyPublisher)(nil)

func NewKafkaPolicyPublisher(producer *pkgkafka.Producer, topic string) *KafkaPolicyPublisher {
	return &KafkaPolicyPublisher{producer: producer, topic: topic}
}

func (p *KafkaPolicyPublisher) PublishDeltas(ctx context.Context, state models.LearningState, deltas models.PolicyDeltas) error {
	biases := make(map[string]map[string]float64, len(deltas.AssetBiases))
	for assetID, d := range deltas.AssetBiases {
		biases[assetID] = map[string]float64{
			"bull_bias": d.Bull,
			"bear_bias": d.Bear,
			"vol_bias":  d.Vol,
		}
	}
	return p.producer.Publish(ctx, p.topic, []byte(string(state)), map[string]interface{}{
		"learning_state": string(state),
		"asset_biases":   biases,
		"risk":           deltas.Risk,
		"emitted_at":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (p *KafkaPolicyPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
