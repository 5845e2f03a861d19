// Package services contains the application services of the SecureBank
// client: account, transaction and card access over the sync coordinator,
// refresh of every class at once and cache administration.
//
// Every entry point first asks the Gate for access, so an expired or
// locked session never reaches cached or remote data.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securebank/internal/client/client"
	"github.com/dmitrijs2005/securebank/internal/client/coordinator"
	"github.com/dmitrijs2005/securebank/internal/client/mapper"
	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
	"github.com/dmitrijs2005/securebank/internal/logging"
)

// Gate authorizes data access. session.Machine implements it.
type Gate interface {
	CheckAccess(ctx context.Context) error
}

// Env carries the collaborators shared by the data services.
type Env struct {
	Coordinator *coordinator.Coordinator
	Gate        Gate
	Conn        coordinator.Connectivity
	Remote      client.Remote
	Mapper      *mapper.Mapper
	Logger      logging.Logger
}

func (e Env) logger(module string) logging.Logger {
	if e.Logger == nil {
		return logging.NopLogger{}.With("module", module)
	}
	return e.Logger.With("module", module)
}

// denied returns a closed channel holding the single failure err.
func denied[T any](err error) <-chan models.Result[T] {
	ch := make(chan models.Result[T], 1)
	ch <- models.Failure[T](err)
	close(ch)
	return ch
}

// single narrows a stream of one-element lists to a stream of elements.
func single[T any](op string, in <-chan models.Result[[]T]) <-chan models.Result[T] {
	out := make(chan models.Result[T], cap(in))
	go func() {
		defer close(out)
		for r := range in {
			if r.IsSuccess() && len(r.Data) == 0 {
				out <- models.Failure[T](common.DataNotFoundError(op, common.ErrNotFound))
				continue
			}
			out <- models.MapResult(r, func(items []T) T { return items[0] })
		}
	}()
	return out
}

func notCached(op, what, id string) error {
	return common.DataNotFoundError(op, fmt.Errorf("%w: %s %s is not cached and the network is unreachable", common.ErrNotFound, what, id))
}
