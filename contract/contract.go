//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"lovewire/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself. Supervision is the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
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

// EventSink consumes domain events published by the channel managers.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Socket is the minimal surface the managers need from a websocket
// connection. *websocket.Conn satisfies it; tests inject fakes.
type Socket interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a socket to an endpoint URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// TokenSource supplies the access token granted by the auth collaborator.
// An empty token disables all connection attempts on both channels.
type TokenSource interface {
	AccessToken() string
}
