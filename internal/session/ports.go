package session

import (
	"ltpbot/internal/execution"
	"ltpbot/internal/market"
	"ltpbot/internal/metrics"
	"ltpbot/internal/types"
)

// PortFactory builds the market source and executor for a session.
type PortFactory interface {
	Open(cfg types.SessionConfig) (market.Source, execution.Executor, error)
}

// Endpoints opens the HTTP feed and broker in live mode and the simulator
// with the paper executor in simulated mode.
type Endpoints struct {
	Feed   market.FeedConfig
	Broker execution.BrokerConfig
}

func (e Endpoints) Open(cfg types.SessionConfig) (market.Source, execution.Executor, error) {
	if cfg.Simulated() {
		sim := market.NewSimulator()
		return sim, execution.NewPaper(sim), nil
	}
	feed, err := market.NewFeed(e.Feed)
	if err != nil {
		return nil, nil, err
	}
	feed.OnAttempt(metrics.ObserveFeedRequest)
	broker, err := execution.NewBroker(e.Broker, feed)
	if err != nil {
		return nil, nil, err
	}
	return feed, broker, nil
}
