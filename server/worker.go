package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/weft/vm"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("runtime worker stopped")

// workRequest is a unit of work executed on the worker goroutine.
type workRequest struct {
	fn   func(*vm.VM) any
	done chan workResult
}

type workResult struct {
	value any
	err   error
}

// RuntimeWorker serializes all access to one VM through a single goroutine.
// Handlers never touch the VM directly.
type RuntimeWorker struct {
	vm       *vm.VM
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewRuntimeWorker starts a worker goroutine owning v.
func NewRuntimeWorker(v *vm.VM) *RuntimeWorker {
	w := &RuntimeWorker{
		vm:       v,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *RuntimeWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn against the VM, turning a panic into an error.
func (w *RuntimeWorker) execute(fn func(*vm.VM) any) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("runtime worker: recovered panic: %v", r)
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn(w.vm)
	return result
}

// Do runs fn on the worker goroutine and waits for it to finish.
func (w *RuntimeWorker) Do(fn func(*vm.VM) any) (any, error) {
	req := workRequest{fn: fn, done: make(chan workResult, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Interrupt asks a running script to stop. It is safe to call from any
// goroutine.
func (w *RuntimeWorker) Interrupt() {
	w.vm.Interrupt()
}

// Stop shuts the worker down. Pending and later calls to Do fail.
func (w *RuntimeWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
