package worker

import (
	"retitle/internal/bus"
	"retitle/internal/config"
)

// Pipeline groups the stage handlers so they can be registered together.
type Pipeline struct {
	Resolver  *Resolver
	Fetcher   *Fetcher
	Generator *Generator
	Deliverer *Deliverer
	Notifier  *Notifier
}

type route struct {
	topic   string
	name    string
	handler bus.Handler
}

// Register subscribes every stage to its input topic, the notifier to every
// stage error topic and the audit log to every sink topic. Must be called
// before the bus starts.
func (p *Pipeline) Register(b bus.Bus) error {
	routes := []route{
		{config.TopicSubmit, "resolve", p.Resolver.Handle},
		{config.TopicChannelResolved, "fetch", p.Fetcher.Handle},
		{config.TopicVideosFetched, "generate", p.Generator.Handle},
		{config.TopicTitlesReady, "deliver", p.Deliverer.Handle},
	}
	for _, topic := range config.ErrorTopics {
		routes = append(routes, route{topic, "notifier", p.Notifier.Handle})
	}
	for _, topic := range config.SinkTopics {
		routes = append(routes, route{topic, "audit", Audit})
	}

	for _, r := range routes {
		if err := b.Subscribe(r.topic, r.name, r.handler); err != nil {
			return err
		}
	}
	return nil
}
