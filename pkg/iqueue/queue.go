// Package iqueue implements an unbounded FIFO between a sender and a receiver.
package iqueue

import (
	"container/list"
	"sync"
)

// New returns a queue, its Loop must be started by the caller.
func New() *Queue {
	return &Queue{
		queue: list.New(),
		send:  make(chan interface{}, 1),
		recv:  make(chan interface{}, 1),
	}
}

type Queue struct {
	mtx    sync.Mutex
	queue  *list.List
	send   chan interface{}
	recv   chan interface{}
	closed bool
}

// Send enqueues v. It is a no-op on a closed queue.
func (iq *Queue) Send(v interface{}) {
	iq.mtx.Lock()
	defer iq.mtx.Unlock()
	if iq.closed {
		return
	}
	iq.send <- v
}

// Receive returns the channel delivering queued values. It is closed after
// Close once every value was delivered.
func (iq *Queue) Receive() <-chan interface{} {
	return iq.recv
}

// Close stops accepting values.
func (iq *Queue) Close() {
	iq.mtx.Lock()
	defer iq.mtx.Unlock()
	if iq.closed {
		return
	}
	iq.closed = true
	close(iq.send)
}

func (iq *Queue) Loop() {
	send := iq.send
	for {
		front := iq.queue.Front()
		if front != nil {
			select {
			case iq.recv <- front.Value:
				iq.queue.Remove(front)
			case value, ok := <-send:
				if ok {
					iq.queue.PushBack(value)
				} else {
					send = nil
				}
			}
			continue
		}

		if send == nil {
			close(iq.recv)
			return
		}
		value, ok := <-send
		if !ok {
			close(iq.recv)
			return
		}
		iq.queue.PushBack(value)
	}
}
