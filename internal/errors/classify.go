package errors

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/journal"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/protocol"
	"github.com/vango-dev/kinesis/pkg/server"
)

// Classify returns the diagnostic for err. A *KinesisError anywhere in
// the chain is returned as is; errors with no specific code get K099.
// Classify returns nil for a nil error.
func Classify(err error) *KinesisError {
	if err == nil {
		return nil
	}
	var ke *KinesisError
	if goerrors.As(err, &ke) {
		return ke
	}

	var (
		unresolved *nested.UnresolvedIdentifierError
		outOfRange *nested.IndexOutOfRangeError
		handler    *nested.HandlerError
		render     *nested.RenderError
		sink       *nested.SinkError
	)

	// Sink errors come first: the sink's own error may wrap anything.
	switch {
	case goerrors.As(err, &sink):
		return New("K005").Wrap(err).
			WithSuggestion(fmt.Sprintf("%s at %s was not delivered; check the connection", sink.Scope, sink.Node))
	case goerrors.As(err, &unresolved):
		hint := fmt.Sprintf("%s no longer exists; drop the event", unresolved.Target)
		if unresolved.Detached {
			hint = fmt.Sprintf("controller %s was detached; stop calling it", unresolved.From)
		}
		return New("K001").Wrap(err).WithSuggestion(hint)
	case goerrors.Is(err, nested.ErrUnresolvedIdentifier):
		return New("K001").Wrap(err)
	case goerrors.As(err, &outOfRange):
		return New("K002").Wrap(err).
			WithSuggestion(fmt.Sprintf("%s has children %v; report only existing indices", outOfRange.Node, outOfRange.Children))
	case goerrors.As(err, &handler):
		return New("K003").Wrap(err).
			WithSuggestion(fmt.Sprintf("check the %s handler of the component at %s", handler.EventType, handler.Target))
	case goerrors.As(err, &render):
		return New("K004").Wrap(err).
			WithSuggestion(fmt.Sprintf("check Render(%s) of the component at %s", render.Scope, render.Node))
	case goerrors.Is(err, nested.ErrBusy):
		return New("K006").Wrap(err).
			WithSuggestion("call the component's UpdateFunc instead of Dispatch")
	case goerrors.Is(err, nested.ErrFollowupLimit):
		return New("K007").Wrap(err).
			WithSuggestion("stop calling UpdateFunc from Render or Mount, or raise server.maxFollowups")
	case goerrors.Is(err, nested.ErrAttached):
		return New("K020").Wrap(err)
	case goerrors.Is(err, nested.ErrIndexInUse):
		return New("K021").Wrap(err)
	case goerrors.Is(err, nested.ErrNegativeIndex):
		return New("K022").Wrap(err)
	case goerrors.Is(err, component.ErrInvalidIdentifier), goerrors.Is(err, component.ErrMalformedIdentifier):
		return New("K023").Wrap(err)

	case goerrors.Is(err, protocol.ErrFrameTooLarge):
		return New("K042").Wrap(err)
	case goerrors.Is(err, protocol.ErrUnknownEventType):
		return New("K041").Wrap(err)
	case isProtocolDecodeError(err):
		return New("K040").Wrap(err)

	case goerrors.Is(err, server.ErrMaxSessionsReached):
		return New("K050").Wrap(err).WithSuggestion("raise server.maxSessions or retry later")
	case goerrors.Is(err, server.ErrSessionClosed):
		return New("K051").Wrap(err)
	case goerrors.Is(err, server.ErrEventQueueFull):
		return New("K052").Wrap(err)
	case goerrors.Is(err, server.ErrNoRoot):
		return New("K053").Wrap(err).WithSuggestion("call Server.SetRoot before Run")

	case goerrors.Is(err, journal.ErrNotFound):
		return New("K060").Wrap(err).WithSuggestion("check the journal id and the store flags")
	case goerrors.Is(err, journal.ErrBadMagic), goerrors.Is(err, journal.ErrBadVersion):
		return New("K061").Wrap(err)

	case goerrors.Is(err, context.Canceled), goerrors.Is(err, context.DeadlineExceeded):
		return Newf(CategoryCLI, "Interrupted").Wrap(err)
	}
	return New("K099").Wrap(err)
}

func isProtocolDecodeError(err error) bool {
	for _, target := range []error{
		protocol.ErrVarintOverflow,
		protocol.ErrAllocationTooLarge,
		protocol.ErrCollectionTooLarge,
		protocol.ErrPathTooDeep,
		protocol.ErrIndexOverflow,
		protocol.ErrPayloadMismatch,
		protocol.ErrInvalidScope,
	} {
		if goerrors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code returns the diagnostic code for err, or "" for nil.
func Code(err error) string {
	if ke := Classify(err); ke != nil {
		return ke.Code
	}
	return ""
}
