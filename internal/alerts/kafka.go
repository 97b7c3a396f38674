package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/drift"
)

// Sink receives the cycle's surviving opportunities and value signals.
// Implementations deliver them to whatever channel operators watch.
type Sink interface {
	PublishOpportunities(ctx context.Context, opps []arb.Opportunity) error
	PublishSignals(ctx context.Context, sigs []drift.ValueSignal) error
}

const payloadVersion = 1

type opportunityEnvelope struct {
	Version     int              `json:"version"`
	Kind        string           `json:"kind"`
	EmittedAt   time.Time        `json:"emitted_at"`
	Opportunity *arb.Opportunity `json:"opportunity"`
}

type signalEnvelope struct {
	Version   int                `json:"version"`
	Kind      string             `json:"kind"`
	EmittedAt time.Time          `json:"emitted_at"`
	Signal    *drift.ValueSignal `json:"signal"`
}

// KafkaSink publishes alert payloads to two topics, one per alert kind.
type KafkaSink struct {
	opportunities *kafka.Writer
	signals       *kafka.Writer
}

func NewKafkaSink(opportunities, signals *kafka.Writer) *KafkaSink {
	return &KafkaSink{opportunities: opportunities, signals: signals}
}

func (s *KafkaSink) PublishOpportunities(ctx context.Context, opps []arb.Opportunity) error {
	if s == nil || s.opportunities == nil || len(opps) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(opps))
	emitted := time.Now().UTC()
	for i := range opps {
		payload, err := json.Marshal(opportunityEnvelope{
			Version:     payloadVersion,
			Kind:        "arbitrage_opportunity",
			EmittedAt:   emitted,
			Opportunity: &opps[i],
		})
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", opps[i].EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(OpportunityKey(&opps[i])),
			Value: payload,
		})
	}
	return s.opportunities.WriteMessages(ctx, msgs...)
}

func (s *KafkaSink) PublishSignals(ctx context.Context, sigs []drift.ValueSignal) error {
	if s == nil || s.signals == nil || len(sigs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(sigs))
	emitted := time.Now().UTC()
	for i := range sigs {
		payload, err := json.Marshal(signalEnvelope{
			Version:   payloadVersion,
			Kind:      "value_signal",
			EmittedAt: emitted,
			Signal:    &sigs[i],
		})
		if err != nil {
			return fmt.Errorf("marshal signal %s: %w", sigs[i].EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(SignalKey(&sigs[i])),
			Value: payload,
		})
	}
	return s.signals.WriteMessages(ctx, msgs...)
}

// Fanout delivers every alert to each sink, returning the first error
// after trying all of them.
type Fanout []Sink

func (f Fanout) PublishOpportunities(ctx context.Context, opps []arb.Opportunity) error {
	var firstErr error
	for _, sink := range f {
		if err := sink.PublishOpportunities(ctx, opps); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f Fanout) PublishSignals(ctx context.Context, sigs []drift.ValueSignal) error {
	var firstErr error
	for _, sink := range f {
		if err := sink.PublishSignals(ctx, sigs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
