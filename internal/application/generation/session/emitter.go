package session

import "sync"

// emitter 保证终止事件最多一个，且终止后不再投递任何事件
type emitter struct {
	mu     sync.Mutex
	ch     chan Event
	gone   <-chan struct{}
	closed bool
}

func newEmitter(buffer int, gone <-chan struct{}) *emitter {
	return &emitter{ch: make(chan Event, buffer), gone: gone}
}

// send 投递非终止事件，消费者离开或通道已关闭时返回 false
func (e *emitter) send(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return e.deliver(ev)
}

// finish 投递可选的终止事件并关闭通道，只有第一次调用生效
func (e *emitter) finish(ev *Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if ev != nil {
		e.deliver(*ev)
	}
	e.closed = true
	close(e.ch)
	return true
}

func (e *emitter) deliver(ev Event) bool {
	select {
	case e.ch <- ev:
		return true
	case <-e.gone:
		return false
	}
}
