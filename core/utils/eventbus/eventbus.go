package eventbus

import (
	"sync"
)

type DataEvent struct {
	Data  map[string]string
	Topic string
}

// DataChannel is a channel which can accept an DataEvent
type DataChannel chan DataEvent

// EventBus stores the information about subscribers interested for a particular topic
type EventBus struct {
	subscribers map[string][]DataChannel
	rm          sync.RWMutex
}

var eb = &EventBus{
	subscribers: map[string][]DataChannel{},
}

// Publish send data to every subscriber of topic without blocking the caller
func Publish(topic string, data map[string]string) {
	eb.rm.RLock()
	defer eb.rm.RUnlock()
	chans, found := eb.subscribers[topic]
	if !found {
		return
	}
	// copy so later subscriptions don't race with the sender
	channels := append([]DataChannel{}, chans...)
	go func(ev DataEvent, dataChannels []DataChannel) {
		for _, ch := range dataChannels {
			ch <- ev
		}
	}(DataEvent{Data: data, Topic: topic}, channels)
}

// Subscribe run fn for every event published on topic
func Subscribe(topic string, fn func(data map[string]string)) {
	ch := make(DataChannel)
	eb.rm.Lock()
	eb.subscribers[topic] = append(eb.subscribers[topic], ch)
	eb.rm.Unlock()

	go func() {
		for v := range ch {
			fn(v.Data)
		}
	}()
}
