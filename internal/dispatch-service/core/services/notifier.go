package services

import (
	"context"
	"errors"

	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"fleet-dispatch/internal/dispatch-service/core/ports"
)

// FanoutNotifier forwards each event to every target and joins their errors.
type FanoutNotifier struct {
	targets []ports.IStatusNotifier
}

func NewFanoutNotifier(targets ...ports.IStatusNotifier) *FanoutNotifier {
	live := make([]ports.IStatusNotifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			live = append(live, t)
		}
	}
	return &FanoutNotifier{targets: live}
}

func (f *FanoutNotifier) Notify(ctx context.Context, evt messagebrokerdto.StatusChanged) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
