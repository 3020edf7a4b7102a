package remoting

import (
	"context"
	"errors"
	"reflect"
)

// ErrNotBound is returned by a Future or Single that was not produced by a
// proxy method, such as a zero value.
var ErrNotBound = errors.New("remoting: result not produced by a proxy call")

// deferred is implemented by the result types a method may declare to
// receive its response without blocking the caller.
type deferred interface {
	payloadType() reflect.Type
	bind(ctx context.Context, t Transport, run func(ctx context.Context, out any) error)
	fail(err error)
}

// reactive marks deferred results consumed through subscription.
type reactive interface {
	deferred
	isReactive()
}

var (
	deferredType = reflect.TypeFor[deferred]()
	reactiveType = reflect.TypeFor[reactive]()
)

type outcome[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func (o *outcome[T]) settle(run func(out any) error) {
	var v T
	err := run(&v)
	o.value, o.err = v, err
	close(o.done)
}

// closed is the done channel reported by unbound results.
var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func (o *outcome[T]) wait(ctx context.Context) (T, error) {
	if o.done == nil {
		var zero T
		return zero, ErrNotBound
	}
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Future is the result of an asynchronous invocation. The exchange is already
// running on the transport when the proxy method returns it.
type Future[T any] struct {
	outcome[T]
}

// Get waits for the response or for ctx to end. Canceling ctx only stops the
// wait; the exchange itself is bound to the context passed to the proxy method.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	return f.wait(ctx)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	if f.done == nil {
		return closed
	}
	return f.done
}

// IsDone reports whether the result is available.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

func (f *Future[T]) payloadType() reflect.Type { return reflect.TypeFor[T]() }

func (f *Future[T]) bind(ctx context.Context, t Transport, run func(context.Context, any) error) {
	f.done = make(chan struct{})
	t.Go(ctx, func(ctx context.Context) {
		f.settle(func(out any) error { return run(ctx, out) })
	})
}

func (f *Future[T]) fail(err error) {
	f.done = make(chan struct{})
	f.settle(func(any) error { return err })
}

// Single is a single-value publisher. The exchange is handed to the
// transport when the proxy method returns; Subscribe and Await only observe
// its outcome, which is shared by every subscriber.
type Single[T any] struct {
	outcome[T]
}

// Subscribe calls exactly one of onSuccess or onError, on another goroutine,
// when the outcome is known. Either callback may be nil.
func (s *Single[T]) Subscribe(onSuccess func(T), onError func(error)) {
	go func() {
		v, err := s.observe()
		switch {
		case err != nil && onError != nil:
			onError(err)
		case err == nil && onSuccess != nil:
			onSuccess(v)
		}
	}()
}

// Await waits for the outcome or for ctx to end.
func (s *Single[T]) Await(ctx context.Context) (T, error) {
	return s.wait(ctx)
}

func (s *Single[T]) observe() (T, error) {
	if s.done == nil {
		var zero T
		return zero, ErrNotBound
	}
	<-s.done
	return s.value, s.err
}

func (s *Single[T]) payloadType() reflect.Type { return reflect.TypeFor[T]() }

func (s *Single[T]) isReactive() {}

func (s *Single[T]) bind(ctx context.Context, t Transport, run func(context.Context, any) error) {
	s.done = make(chan struct{})
	t.Go(ctx, func(ctx context.Context) {
		s.settle(func(out any) error { return run(ctx, out) })
	})
}

func (s *Single[T]) fail(err error) {
	s.done = make(chan struct{})
	s.settle(func(any) error { return err })
}
