package events

import (
	"context"
	"errors"
)

// MultiPublisher fans each event out to several publishers, typically the
// in-process stream plus Pub/Sub.
type MultiPublisher struct {
	targets []Publisher
}

// NewMultiPublisher creates a fan-out publisher.
func NewMultiPublisher(targets ...Publisher) *MultiPublisher {
	return &MultiPublisher{targets: targets}
}

// Publish implements Publisher. Every target is attempted; errors are
// joined so one failing sink does not starve the others.
func (p *MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, t := range p.targets {
		if err := t.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
