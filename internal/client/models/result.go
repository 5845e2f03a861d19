package models

import "github.com/dmitrijs2005/securebank/internal/common"

// ResultKind tags the variant held by a Result.
type ResultKind int

const (
	KindLoading ResultKind = iota
	KindSuccess
	KindError
)

func (k ResultKind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	default:
		return "error"
	}
}

// Result is one emission of a data request: Loading, Success or Error.
// A Success with Stale set carries cached data that a refresh may replace.
type Result[T any] struct {
	Kind  ResultKind
	Data  T
	Stale bool
	Err   error
}

func Loading[T any]() Result[T] { return Result[T]{Kind: KindLoading} }

func Success[T any](data T) Result[T] { return Result[T]{Kind: KindSuccess, Data: data} }

func StaleSuccess[T any](data T) Result[T] {
	return Result[T]{Kind: KindSuccess, Data: data, Stale: true}
}

func Failure[T any](err error) Result[T] { return Result[T]{Kind: KindError, Err: err} }

func (r Result[T]) IsLoading() bool { return r.Kind == KindLoading }
func (r Result[T]) IsSuccess() bool { return r.Kind == KindSuccess }
func (r Result[T]) IsError() bool   { return r.Kind == KindError }

// ErrorKind classifies the error of an Error result.
func (r Result[T]) ErrorKind() common.Kind { return common.KindOf(r.Err) }

// Match calls exactly one of the handlers depending on the variant.
func (r Result[T]) Match(onLoading func(), onSuccess func(data T, stale bool), onError func(err error)) {
	switch r.Kind {
	case KindLoading:
		onLoading()
	case KindSuccess:
		onSuccess(r.Data, r.Stale)
	default:
		onError(r.Err)
	}
}

// MapResult converts the payload of r with f, keeping its variant.
func MapResult[T, U any](r Result[T], f func(T) U) Result[U] {
	out := Result[U]{Kind: r.Kind, Stale: r.Stale, Err: r.Err}
	if r.Kind == KindSuccess {
		out.Data = f(r.Data)
	}
	return out
}
