//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chattr/domain"
	"chattr/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of a session: the dispatcher enqueues,
// a dedicated writer goroutine drains towards the transport.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ISessionStore binds transport connection ids to identities, outbound
// sinks, and the set of rooms the connection currently belongs to.
type ISessionStore interface {
	Register(connID string, identity domain.User, sink EventSink)
	AttachRoom(connID, roomName string)
	DetachRoom(connID, roomName string)
	// Unregister atomically removes the session and returns the identity
	// and every room it belonged to. Unknown ids report ok=false.
	Unregister(connID string) (identity domain.User, rooms []string, ok bool)
	SinksForRoom(roomName string) []EventSink
	SessionCount() int
}
