package eventbus

import (
	"github.com/annel0/levelforge/internal/logging"
)

// AttachLogger подписывается на все события шины с приоритетом монитора и пишет
// их в лог уровня DEBUG. describe форматирует полезную нагрузку (nil — без неё).
func AttachLogger[T any](bus *Bus[T], describe func(T) string) *Subscription[T] {
	sub := bus.Register(func(ev *Event[T], _ *Subscription[T]) {
		payload := ""
		if describe != nil {
			payload = describe(ev.Payload)
		}
		logging.Debug("[EventBus %s] src=%s canceled=%v %s", bus.Name(), ev.Source, ev.Canceled(), payload)
	}, PriorityMonitor, nil, "")

	logging.Info("🪵 LoggingListener: подписка на шину %s активирована", bus.Name())
	return sub
}
